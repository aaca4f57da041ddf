package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, store *Store) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Store, error)
	List(ctx context.Context, db *gorm.DB, scope access.Scope, name string) ([]Store, error)
	CountSlug(ctx context.Context, db *gorm.DB, slug string) (int64, error)
	Rename(ctx context.Context, db *gorm.DB, store *Store) error
}

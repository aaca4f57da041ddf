package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

type ListFilter struct {
	Scope  access.Scope
	Search string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, category *Category) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Category, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Category, error)
	Rename(ctx context.Context, db *gorm.DB, category *Category) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	CountProducts(ctx context.Context, db *gorm.DB, id int64) (int64, error)
}

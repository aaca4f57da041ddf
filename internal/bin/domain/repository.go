package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

type ListFilter struct {
	Scope       access.Scope
	OnlyFlagged bool
}

type Repository interface {
	EnsureRow(ctx context.Context, db *gorm.DB, key Key, now time.Time) error
	LockRow(ctx context.Context, db *gorm.DB, key Key) (*Flag, error)
	CountDisposing(ctx context.Context, db *gorm.DB, key Key, excludeLineID int64) (int64, error)
	UpdateValue(ctx context.Context, db *gorm.DB, key Key, value State, now time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]FlagView, error)
}

package repository

import (
	"context"

	"github.com/smallbiznis/trashforcoin/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is the generic CRUD store shared by the simple catalog tables.
// Lookups that miss return nil, nil.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	FindByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, resource *T) error
	Update(ctx context.Context, id int64, resource any) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, resources []*T) error
}

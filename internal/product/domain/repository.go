package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	categorydomain "github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Scope      access.Scope
	CategoryID int64
	Search     string
	// MaxStock keeps products at or below the given stock when set.
	MaxStock *int64
	Page     pagination.Pagination
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Product, error)
	FindByBarcode(ctx context.Context, db *gorm.DB, scope access.Scope, code string) (*Product, error)
	FindCategory(ctx context.Context, db *gorm.DB, id int64) (*categorydomain.Category, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Product, int64, error)
	UpdateCatalog(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	CountOrderLines(ctx context.Context, db *gorm.DB, id int64) (int64, error)
	LineStores(ctx context.Context, db *gorm.DB, id int64) ([]int64, error)
}

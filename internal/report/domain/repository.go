package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Scope          access.Scope
	ReceiptBarcode string
	Search         string
	From           *time.Time
	To             *time.Time
	CompletedOnly  bool
	Page           pagination.Pagination
}

type Repository interface {
	CountStores(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	CountUsers(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	CountCategories(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	// CountProducts returns the product count, the low stock count and the stock unit sum.
	CountProducts(ctx context.Context, db *gorm.DB, scope access.Scope, lowStock int64) (int64, int64, int64, error)
	CountOrders(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	CountOpenLines(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	CountFlaggedBins(ctx context.Context, db *gorm.DB, scope access.Scope) (int64, error)
	ListOrders(ctx context.Context, db *gorm.DB, filter OrderFilter) ([]OrderRow, int64, error)
	StoreSnapshots(ctx context.Context, db *gorm.DB, lowStock int64) ([]StoreSnapshot, error)
}

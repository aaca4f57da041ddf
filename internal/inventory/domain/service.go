package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

// Service is the only writer of tbl_products.stock_quantity. Every mutating method
// runs inside the caller's transaction and locks the product row first.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, change Change) (StockLevel, error)
	Release(ctx context.Context, tx *gorm.DB, change Change) (StockLevel, error)
	Adjust(ctx context.Context, tx *gorm.DB, change Change) (StockLevel, error)
	Set(ctx context.Context, tx *gorm.DB, productID, stock int64, ref Reference) (StockLevel, error)
	EnsureUniqueBarcode(ctx context.Context, tx *gorm.DB, storeID *int64, barcode string, excludeProductID int64) error
	Movements(ctx context.Context, actor access.Actor, req ListMovementsRequest) (ListMovementsResponse, error)
}

type ListMovementsRequest struct {
	ProductID int64
	PageToken string
	PageSize  int
}

type ListMovementsResponse struct {
	NextPageToken string     `json:"next_page_token,omitempty"`
	Movements     []Movement `json:"movements"`
}

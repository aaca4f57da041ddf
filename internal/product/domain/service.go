package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateRequest) (*Product, error)
	Update(ctx context.Context, actor access.Actor, req UpdateRequest) (*Product, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	Get(ctx context.Context, actor access.Actor, id int64) (*Product, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) (ListResponse, error)
	FindByBarcode(ctx context.Context, actor access.Actor, code string) (*Product, error)
	Barcode(ctx context.Context, actor access.Actor, id int64) (BarcodeResponse, error)
}

// CreateRequest leaves CatalogBarcode empty to print the product's own codec barcode.
type CreateRequest struct {
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int64           `json:"stock_quantity"`
	CategoryID     int64           `json:"category_id"`
	CatalogBarcode string          `json:"catalog_barcode"`
	StoreID        *int64          `json:"store_id,omitempty"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	ID             int64            `json:"-"`
	Name           *string          `json:"name,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	StockQuantity  *int64           `json:"stock_quantity,omitempty"`
	CategoryID     *int64           `json:"category_id,omitempty"`
	CatalogBarcode *string          `json:"catalog_barcode,omitempty"`
}

type ListRequest struct {
	pagination.Pagination
	StoreID    *int64 `form:"store_id"`
	CategoryID int64  `form:"category_id"`
	Search     string `form:"q"`
	LowStock   bool   `form:"low_stock"`
}

type ListResponse struct {
	Products []Product           `json:"products"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

// BarcodeResponse carries the codec barcode derived from the product id next to the
// barcode printed on the catalog row.
type BarcodeResponse struct {
	ProductID      int64  `json:"product_id"`
	Barcode        string `json:"barcode"`
	CatalogBarcode string `json:"catalog_barcode"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPrice    = errors.New("invalid_price")
	ErrInvalidStock    = errors.New("invalid_stock")
	ErrInvalidCategory = errors.New("invalid_category")
	ErrNotFound        = errors.New("product_not_found")
	ErrInUse           = errors.New("product_in_use")
)

package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
)

// Dashboard holds the home screen counters. Every counter is computed under the
// caller's read scope of the counted resource, so a role without that capability
// sees zero.
type Dashboard struct {
	StoreID       *int64 `json:"store_id,omitempty"`
	Stores        int64  `json:"stores"`
	Users         int64  `json:"users"`
	Categories    int64  `json:"categories"`
	Products      int64  `json:"products"`
	LowStock      int64  `json:"low_stock"`
	StockUnits    int64  `json:"stock_units"`
	Orders        int64  `json:"orders"`
	OpenCartLines int64  `json:"open_cart_lines"`
	FlaggedBins   int64  `json:"flagged_bins"`
}

// OrderRow is one order line joined with its product, category and store.
type OrderRow struct {
	LineID         int64           `gorm:"column:line_id" json:"line_id"`
	OrderID        string          `gorm:"column:order_id" json:"order_id"`
	ReceiptBarcode *string         `gorm:"column:receipt_barcode" json:"receipt_barcode,omitempty"`
	OrderDate      time.Time       `gorm:"column:order_date" json:"order_date"`
	Email          string          `gorm:"column:email" json:"email"`
	StoreID        int64           `gorm:"column:store_id" json:"store_id"`
	StoreName      string          `gorm:"column:store_name" json:"store_name"`
	ProductID      int64           `gorm:"column:products_id" json:"product_id"`
	ProductName    string          `gorm:"column:products_name" json:"product_name"`
	CategoryID     int64           `gorm:"column:category_id" json:"category_id"`
	CategoryName   string          `gorm:"column:category_name" json:"category_name"`
	Quantity       int64           `gorm:"column:quantity" json:"quantity"`
	Disquantity    int64           `gorm:"column:disquantity" json:"disquantity"`
	PricePerUnit   decimal.Decimal `gorm:"column:price_per_unit" json:"price_per_unit"`
	CatalogPrice   decimal.Decimal `gorm:"column:catalog_price" json:"catalog_price"`
	Subtotal       decimal.Decimal `gorm:"-" json:"subtotal"`
}

// OrdersResponse totals cover the returned page.
type OrdersResponse struct {
	Rows          []OrderRow          `json:"rows"`
	TotalQuantity int64               `json:"total_quantity"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PageInfo      pagination.PageInfo `json:"page_info"`
}

// StoreSnapshot is the per-store inventory state exported as gauges.
type StoreSnapshot struct {
	StoreID       int64  `gorm:"column:store_id"`
	StoreName     string `gorm:"column:store_name"`
	Slug          string `gorm:"column:slug"`
	Products      int64  `gorm:"column:products"`
	StockUnits    int64  `gorm:"column:stock_units"`
	LowStock      int64  `gorm:"column:low_stock"`
	FlaggedBins   int64  `gorm:"column:flagged_bins"`
	OpenCartLines int64  `gorm:"column:open_cart_lines"`
}

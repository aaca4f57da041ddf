package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog row. StockQuantity is owned by the inventory ledger; catalog
// writes never touch it directly.
type Product struct {
	ID             int64           `gorm:"column:products_id;primaryKey;autoIncrement" json:"id"`
	Name           string          `gorm:"column:products_name;not null" json:"name"`
	Price          decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null" json:"price"`
	StockQuantity  int64           `gorm:"column:stock_quantity;not null" json:"stock_quantity"`
	CategoryID     int64           `gorm:"column:category_id;not null" json:"category_id"`
	CatalogBarcode string          `gorm:"column:barcode_id;not null" json:"catalog_barcode"`
	StoreID        *int64          `gorm:"column:store_id" json:"store_id,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Product) TableName() string { return "tbl_products" }

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Line is one row of tbl_order. Lines sharing OrderID within a store form an order;
// ReceiptBarcode is stamped at checkout and stays nil while the line is in a cart.
type Line struct {
	ID             int64           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OrderID        string          `gorm:"column:order_id;not null" json:"order_id"`
	ProductID      int64           `gorm:"column:products_id;not null" json:"product_id"`
	ProductName    string          `gorm:"column:products_name;not null" json:"product_name"`
	Quantity       int64           `gorm:"column:quantity;not null" json:"quantity"`
	Disquantity    int64           `gorm:"column:disquantity;not null" json:"disquantity"`
	Email          string          `gorm:"column:email;not null" json:"email"`
	ReceiptBarcode *string         `gorm:"column:receipt_barcode" json:"receipt_barcode,omitempty"`
	StoreID        int64           `gorm:"column:store_id;not null" json:"store_id"`
	PricePerUnit   decimal.Decimal `gorm:"column:price_per_unit;type:decimal(10,2);not null" json:"price_per_unit"`
	OrderDate      time.Time       `gorm:"column:order_date;not null" json:"order_date"`
}

func (Line) TableName() string { return "tbl_order" }

// Open reports whether the line still sits in a cart.
func (l *Line) Open() bool {
	return l.ReceiptBarcode == nil || strings.TrimSpace(*l.ReceiptBarcode) == ""
}

// Subtotal is quantity times the snapshotted unit price.
func (l *Line) Subtotal() decimal.Decimal {
	return l.PricePerUnit.Mul(decimal.NewFromInt(l.Quantity))
}

// Sequence is the per-store high-water mark of allocated cart order ids.
type Sequence struct {
	StoreID     int64 `gorm:"column:store_id;primaryKey"`
	LastOrderID int64 `gorm:"column:last_order_id;not null"`
}

func (Sequence) TableName() string { return "tbl_order_sequences" }

// Receipt is the checkout result. It is never stored; its barcode lives on the lines.
type Receipt struct {
	OrderID        string          `json:"order_id"`
	ReceiptBarcode string          `json:"receipt_barcode"`
	StoreID        int64           `json:"store_id"`
	Email          string          `json:"email"`
	TotalQuantity  int64           `json:"total_quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	IssuedAt       time.Time       `json:"issued_at"`
	Lines          []Line          `json:"lines"`
}

// Cart is the open order of a session.
type Cart struct {
	OrderID       string          `json:"order_id,omitempty"`
	StoreID       *int64          `json:"store_id,omitempty"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Lines         []Line          `json:"lines"`
}

// Totals sums quantities and subtotals of lines.
func Totals(lines []Line) (int64, decimal.Decimal) {
	var quantity int64
	price := decimal.Zero
	for i := range lines {
		quantity += lines[i].Quantity
		price = price.Add(lines[i].Subtotal())
	}
	return quantity, price
}

package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type MovementKind string

const (
	MovementReserve MovementKind = "reserve"
	MovementRelease MovementKind = "release"
	MovementAdjust  MovementKind = "adjust"
	MovementSet     MovementKind = "set"
)

// Movement is one append-only entry of the stock ledger.
type Movement struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	ProductID     int64             `gorm:"column:products_id" json:"product_id"`
	StoreID       *int64            `gorm:"column:store_id" json:"store_id,omitempty"`
	Kind          MovementKind      `gorm:"column:kind" json:"kind"`
	QuantityDelta int64             `gorm:"column:quantity_delta" json:"quantity_delta"`
	StockBefore   int64             `gorm:"column:stock_before" json:"stock_before"`
	StockAfter    int64             `gorm:"column:stock_after" json:"stock_after"`
	ReferenceType string            `gorm:"column:reference_type" json:"reference_type,omitempty"`
	ReferenceID   string            `gorm:"column:reference_id" json:"reference_id,omitempty"`
	CorrelationID string            `gorm:"column:correlation_id" json:"correlation_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (Movement) TableName() string { return "tbl_stock_movements" }

// Reference names the business record that caused a movement.
type Reference struct {
	Type string
	ID   string
}

// Change asks the ledger to move stock of one product. Quantity is a positive unit
// count for Reserve and Release and a signed delta for Adjust.
type Change struct {
	ProductID int64
	Quantity  int64
	Reference Reference
	Metadata  map[string]any
}

// StockLevel reports a product's stock around a committed change.
type StockLevel struct {
	ProductID int64  `json:"product_id"`
	StoreID   *int64 `json:"store_id,omitempty"`
	Before    int64  `json:"before"`
	After     int64  `json:"after"`
}

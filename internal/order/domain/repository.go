package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"gorm.io/gorm"
)

// OpenLineKey identifies the cart line a new add merges into.
type OpenLineKey struct {
	OrderID   string
	ProductID int64
	StoreID   int64
	Email     string
}

type OpenLinesFilter struct {
	OrderID string
	StoreID int64
	Email   string
}

type ListFilter struct {
	Scope          access.Scope
	OrderID        string
	ReceiptBarcode string
	Search         string
	Page           pagination.Pagination
}

// Repository reads and writes tbl_order and tbl_order_sequences. Every method takes
// the connection to run on so writers stay inside the caller's transaction.
// Lookups that miss return nil, nil.
type Repository interface {
	FindProduct(ctx context.Context, db *gorm.DB, productID int64) (*productdomain.Product, error)
	FindProductByBarcode(ctx context.Context, db *gorm.DB, code string, storeID int64) (*productdomain.Product, error)

	LockLine(ctx context.Context, db *gorm.DB, lineID int64) (*Line, error)
	LockOpenLine(ctx context.Context, db *gorm.DB, key OpenLineKey) (*Line, error)
	FindLine(ctx context.Context, db *gorm.DB, lineID int64, scope access.Scope) (*Line, error)
	InsertLine(ctx context.Context, db *gorm.DB, line *Line) error
	UpdateLine(ctx context.Context, db *gorm.DB, line *Line) error
	DeleteLine(ctx context.Context, db *gorm.DB, lineID int64) error

	ListOpenLines(ctx context.Context, db *gorm.DB, filter OpenLinesFilter) ([]*Line, error)
	LockReceiptLines(ctx context.Context, db *gorm.DB, receiptBarcode string) ([]*Line, error)
	FindReceiptLines(ctx context.Context, db *gorm.DB, receiptBarcode string, scope access.Scope) ([]*Line, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Line, int64, error)

	MaxNumericOrderID(ctx context.Context, db *gorm.DB, storeID int64) (int64, error)
	LockSequence(ctx context.Context, db *gorm.DB, storeID int64) (*Sequence, error)
	SaveSequence(ctx context.Context, db *gorm.DB, seq *Sequence) error

	CountReceiptBarcode(ctx context.Context, db *gorm.DB, code string) (int64, error)
	StampReceipt(ctx context.Context, db *gorm.DB, lineIDs []int64, code string) error
}

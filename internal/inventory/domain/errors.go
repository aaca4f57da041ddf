package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrNegativeStock     = errors.New("negative_stock")
	ErrProductNotFound   = errors.New("product_not_found")
	ErrDuplicateBarcode  = errors.New("duplicate_barcode")
	ErrInvalidBarcode    = errors.New("invalid_barcode")
	ErrConcurrentUpdate  = errors.New("concurrent_stock_update")
	ErrInvalidPageToken  = errors.New("invalid_page_token")
)

// InsufficientStockError carries the stock a reservation found.
type InsufficientStockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient_stock: product %d has %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidDisquantity      = errors.New("invalid_disquantity")
	ErrInvalidOrderID          = errors.New("invalid_order_id")
	ErrInvalidEmail            = errors.New("invalid_email")
	ErrInvalidScanCode         = errors.New("invalid_scan_code")
	ErrInvalidReceiptBarcode   = errors.New("invalid_receipt_barcode")
	ErrStoreRequired           = errors.New("store_required")
	ErrSessionRequired         = errors.New("cart_session_required")
	ErrProductNotFound         = errors.New("product_not_found")
	ErrLineNotFound            = errors.New("order_line_not_found")
	ErrLineClosed              = errors.New("order_line_closed")
	ErrDuplicateLine           = errors.New("duplicate_line")
	ErrEmptyOrder              = errors.New("empty_order")
	ErrDisposalExceedsQuantity = errors.New("disposal_exceeds_quantity")
	ErrReceiptBarcodeExhausted = errors.New("receipt_barcode_exhausted")
)

// DuplicateLineError is returned when merging into an existing open line would
// take more stock than the product holds. Cause carries the stock detail.
type DuplicateLineError struct {
	LineID int64
	Cause  error
}

func (e *DuplicateLineError) Error() string {
	return fmt.Sprintf("duplicate_line: line %d: %v", e.LineID, e.Cause)
}

func (e *DuplicateLineError) Is(target error) bool {
	return target == ErrDuplicateLine
}

func (e *DuplicateLineError) Unwrap() error {
	return e.Cause
}

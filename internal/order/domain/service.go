package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
)

// Service owns order lines and the cart to receipt workflow. Each mutating call is
// one transaction: line write, stock movement and bin refresh commit together or
// not at all.
type Service interface {
	AddLine(ctx context.Context, actor access.Actor, req AddLineRequest) (*Line, error)
	EditLine(ctx context.Context, actor access.Actor, req EditLineRequest) (*Line, error)
	DeleteLine(ctx context.Context, actor access.Actor, lineID int64) error
	GetLine(ctx context.Context, actor access.Actor, lineID int64) (*Line, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) (ListResponse, error)

	AllocateCartOrderID(ctx context.Context, actor access.Actor, sess *cartsession.Session, requested *int64) (string, error)
	CartAdd(ctx context.Context, actor access.Actor, sess *cartsession.Session, req CartAddRequest) (*Line, error)
	ScanAdd(ctx context.Context, actor access.Actor, sess *cartsession.Session, code string) (*Line, error)
	CartLines(ctx context.Context, actor access.Actor, sess *cartsession.Session) (Cart, error)
	EditCartLine(ctx context.Context, actor access.Actor, sess *cartsession.Session, lineID, quantity int64) (*Line, error)
	RemoveCartLine(ctx context.Context, actor access.Actor, sess *cartsession.Session, lineID int64) error
	Checkout(ctx context.Context, actor access.Actor, sess *cartsession.Session) (*Receipt, error)

	ReceiptLines(ctx context.Context, actor access.Actor, receiptBarcode string) ([]Line, error)
	AddDisposal(ctx context.Context, actor access.Actor, req AddDisposalRequest) (*Line, error)
}

// AddLineRequest is a manual order entry. StoreID is required only when neither the
// product nor the actor pins a store.
type AddLineRequest struct {
	OrderID     string `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	Disquantity int64  `json:"disquantity"`
	Email       string `json:"email"`
	StoreID     *int64 `json:"store_id,omitempty"`
}

type EditLineRequest struct {
	LineID      int64 `json:"-"`
	ProductID   int64 `json:"product_id"`
	Quantity    int64 `json:"quantity"`
	Disquantity int64 `json:"disquantity"`
}

type CartAddRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// AddDisposalRequest records one returned unit. ProductCode is the product's catalog
// barcode or its codec barcode.
type AddDisposalRequest struct {
	ReceiptBarcode string `json:"receipt_barcode"`
	ProductCode    string `json:"product_code"`
}

type ListRequest struct {
	pagination.Pagination
	StoreID        *int64 `form:"store_id"`
	OrderID        string `form:"order_id"`
	ReceiptBarcode string `form:"receipt_barcode"`
	Search         string `form:"q"`
}

type ListResponse struct {
	Lines    []Line              `json:"lines"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

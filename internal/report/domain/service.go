package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
)

type Service interface {
	Dashboard(ctx context.Context, actor access.Actor, storeID *int64) (Dashboard, error)
	Orders(ctx context.Context, actor access.Actor, req OrdersRequest) (OrdersResponse, error)
	StoreSnapshots(ctx context.Context) ([]StoreSnapshot, error)
}

type OrdersRequest struct {
	pagination.Pagination
	StoreID        *int64     `form:"store_id"`
	ReceiptBarcode string     `form:"receipt_barcode"`
	Search         string     `form:"q"`
	From           *time.Time `form:"from" time_format:"2006-01-02"`
	To             *time.Time `form:"to" time_format:"2006-01-02"`
	CompletedOnly  bool       `form:"completed"`
}

var ErrInvalidRange = errors.New("invalid_date_range")

package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"gorm.io/gorm"
)

// Tracker keeps tbl_bin in step with order line disposals. Only the order engine
// calls Refresh, inside the transaction that wrote the line.
type Tracker interface {
	Refresh(ctx context.Context, tx *gorm.DB, key Key, lineID int64, line *LineState) (State, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) ([]FlagView, error)
}

type ListRequest struct {
	StoreID     *int64
	OnlyFlagged bool
}

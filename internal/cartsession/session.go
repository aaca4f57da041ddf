// Package cartsession holds the per-login cart pointer: the open cart order id and
// the receipt of the last checkout. It lives outside the order engine, which gets
// the session passed in explicitly.
package cartsession

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("invalid_session_key")

type Session struct {
	Key                string    `json:"key"`
	OrderID            string    `json:"order_id,omitempty"`
	StoreID            *int64    `json:"store_id,omitempty"`
	LastReceiptBarcode string    `json:"last_receipt_barcode,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasOpenOrder reports whether a cart order id was already allocated.
func (s *Session) HasOpenOrder() bool {
	return s != nil && s.OrderID != ""
}

// ClearOrder drops the cart pointer, as checkout and logout do.
func (s *Session) ClearOrder() {
	if s == nil {
		return
	}
	s.OrderID = ""
	s.StoreID = nil
}

// Store persists sessions by key. Concurrent writers of one key resolve last
// writer wins.
type Store interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, key string) error
}

package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/trashforcoin/internal/access"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateRequest) (*Category, error)
	Rename(ctx context.Context, actor access.Actor, req RenameRequest) (*Category, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	Get(ctx context.Context, actor access.Actor, id int64) (*Category, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) ([]Category, error)
}

// CreateRequest leaves StoreID empty for the actor's own store; global actors leave
// it empty to create a shared category.
type CreateRequest struct {
	Name    string `json:"name"`
	StoreID *int64 `json:"store_id,omitempty"`
}

type RenameRequest struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}

type ListRequest struct {
	StoreID *int64 `form:"store_id"`
	Search  string `form:"q"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("category_not_found")
	ErrInUse       = errors.New("category_in_use")
)

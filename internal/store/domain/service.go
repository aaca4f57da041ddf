package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/trashforcoin/internal/access"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateRequest) (*Store, error)
	Rename(ctx context.Context, actor access.Actor, req RenameRequest) (*Store, error)
	Get(ctx context.Context, actor access.Actor, id int64) (*Store, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) ([]Store, error)
}

type CreateRequest struct {
	Name string `json:"name"`
}

type RenameRequest struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
}

type ListRequest struct {
	Name string `form:"name"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidID   = errors.New("invalid_id")
	ErrNotFound    = errors.New("store_not_found")
	ErrSlugTaken   = errors.New("slug_taken")
)

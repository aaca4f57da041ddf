package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, actor access.Actor, req CreateRequest) (*User, error)
	Update(ctx context.Context, actor access.Actor, req UpdateRequest) (*User, error)
	AssignStore(ctx context.Context, actor access.Actor, req AssignStoreRequest) (*User, error)
	Delete(ctx context.Context, actor access.Actor, id int64) error
	Get(ctx context.Context, actor access.Actor, id int64) (*User, error)
	List(ctx context.Context, actor access.Actor, req ListRequest) (ListResponse, error)
	ChangePassword(ctx context.Context, actor access.Actor, req ChangePasswordRequest) error
	// Bootstrap creates the first root_admin of an empty database. It is a no-op once
	// any root_admin exists.
	Bootstrap(ctx context.Context, email, password string) (*User, error)
}

type CreateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	StoreID   *int64 `json:"store_id,omitempty"`
}

// UpdateRequest edits profile fields and the role. Store moves go through AssignStore.
type UpdateRequest struct {
	ID        int64   `json:"-"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	Role      *string `json:"role,omitempty"`
}

type AssignStoreRequest struct {
	ID      int64  `json:"-"`
	StoreID *int64 `json:"store_id"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ListRequest struct {
	pagination.Pagination
	StoreID *int64 `form:"store_id"`
	Role    string `form:"role"`
	Search  string `form:"q"`
}

type ListResponse struct {
	Users    []User              `json:"users"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidPassword = errors.New("invalid_password")
	ErrEmailTaken      = errors.New("email_taken")
	ErrNotFound        = errors.New("user_not_found")
	ErrStoreRequired   = errors.New("store_required")
	ErrStoreNotFound   = errors.New("store_not_found")
	ErrLastRootAdmin   = errors.New("last_root_admin")
	ErrWrongPassword   = errors.New("wrong_password")
)

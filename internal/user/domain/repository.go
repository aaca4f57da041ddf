package domain

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Scope  access.Scope
	Role   access.Role
	Search string
	Page   pagination.Pagination
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*User, error)
	LockByID(ctx context.Context, db *gorm.DB, id int64) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]User, int64, error)
	Update(ctx context.Context, db *gorm.DB, user *User) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	LockRole(ctx context.Context, db *gorm.DB, role access.Role) ([]int64, error)
	StoreExists(ctx context.Context, db *gorm.DB, storeID int64) (bool, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/access"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"gorm.io/gorm"
)

type MovementFilter struct {
	Scope     access.Scope
	ProductID int64
	BeforeID  snowflake.ID
	Limit     int
}

type Repository interface {
	LockProduct(ctx context.Context, db *gorm.DB, productID int64) (*productdomain.Product, error)
	CompareAndSetStock(ctx context.Context, db *gorm.DB, productID, expected, next int64) (bool, error)
	InsertMovement(ctx context.Context, db *gorm.DB, movement *Movement) error
	ListMovements(ctx context.Context, db *gorm.DB, filter MovementFilter) ([]*Movement, error)
	CountBarcode(ctx context.Context, db *gorm.DB, storeID *int64, barcode string, excludeProductID int64) (int64, error)
}

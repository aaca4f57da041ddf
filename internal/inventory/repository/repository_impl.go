package repository

import (
	"context"

	"github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) LockProduct(ctx context.Context, db *gorm.DB, productID int64) (*productdomain.Product, error) {
	var product productdomain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT products_id, products_name, price, stock_quantity, category_id, barcode_id, store_id, created_at, updated_at
		 FROM tbl_products
		 WHERE products_id = ?
		 FOR UPDATE`,
		productID,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

// CompareAndSetStock writes next only if the row still holds expected.
func (r *repo) CompareAndSetStock(ctx context.Context, db *gorm.DB, productID, expected, next int64) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE tbl_products
		 SET stock_quantity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE products_id = ? AND stock_quantity = ?`,
		next,
		productID,
		expected,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) InsertMovement(ctx context.Context, db *gorm.DB, movement *domain.Movement) error {
	return db.WithContext(ctx).Create(movement).Error
}

func (r *repo) ListMovements(ctx context.Context, db *gorm.DB, filter domain.MovementFilter) ([]*domain.Movement, error) {
	var movements []*domain.Movement
	stmt := filter.Scope.Apply(db.WithContext(ctx).Model(&domain.Movement{}), "store_id", "")
	if filter.ProductID != 0 {
		stmt = stmt.Where("products_id = ?", filter.ProductID)
	}
	if filter.BeforeID != 0 {
		stmt = stmt.Where("id < ?", filter.BeforeID)
	}
	stmt = stmt.Order("id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repo) CountBarcode(ctx context.Context, db *gorm.DB, storeID *int64, barcode string, excludeProductID int64) (int64, error) {
	stmt := db.WithContext(ctx).Model(&productdomain.Product{}).Where("barcode_id = ?", barcode)
	if storeID == nil {
		stmt = stmt.Where("store_id IS NULL")
	} else {
		stmt = stmt.Where("store_id = ?", *storeID)
	}
	if excludeProductID != 0 {
		stmt = stmt.Where("products_id <> ?", excludeProductID)
	}

	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

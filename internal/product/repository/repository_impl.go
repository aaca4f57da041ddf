package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	categorydomain "github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/internal/product/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Where("products_id = ?", id).Limit(1).Find(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

// FindByBarcode prefers a store product over a shared one printed with the same code.
func (r *repo) FindByBarcode(ctx context.Context, db *gorm.DB, scope access.Scope, code string) (*domain.Product, error) {
	var product domain.Product
	err := scope.Apply(db.WithContext(ctx).Model(&domain.Product{}), "store_id", "").
		Where("barcode_id = ?", code).
		Order("CASE WHEN store_id IS NULL THEN 1 ELSE 0 END").
		Order("products_id ASC").
		Limit(1).
		Find(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindCategory(ctx context.Context, db *gorm.DB, id int64) (*categorydomain.Category, error) {
	var category categorydomain.Category
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Product, int64, error) {
	listQuery := func() *gorm.DB {
		stmt := filter.Scope.Apply(db.WithContext(ctx).Model(&domain.Product{}), "store_id", "")
		if filter.CategoryID > 0 {
			stmt = stmt.Where("category_id = ?", filter.CategoryID)
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			stmt = stmt.Where("(LOWER(products_name) LIKE ? OR barcode_id LIKE ?)", "%"+search+"%", search+"%")
		}
		if filter.MaxStock != nil {
			stmt = stmt.Where("stock_quantity <= ?", *filter.MaxStock)
		}
		return stmt
	}

	var total int64
	if err := listQuery().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Product
	err := listQuery().
		Order("products_name ASC").
		Order("products_id ASC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateCatalog writes every column except stock_quantity.
func (r *repo) UpdateCatalog(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tbl_products
		 SET products_name = ?, price = ?, category_id = ?, barcode_id = ?, updated_at = ?
		 WHERE products_id = ?`,
		product.Name,
		product.Price,
		product.CategoryID,
		product.CatalogBarcode,
		product.UpdatedAt,
		product.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	return db.WithContext(ctx).Exec(`DELETE FROM tbl_products WHERE products_id = ?`, id).Error
}

func (r *repo) CountOrderLines(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM tbl_order WHERE products_id = ?`, id).Scan(&count).Error
	return count, err
}

// LineStores lists the stores holding order lines of the product.
func (r *repo) LineStores(ctx context.Context, db *gorm.DB, id int64) ([]int64, error) {
	var stores []int64
	err := db.WithContext(ctx).
		Table("tbl_order").
		Where("products_id = ?", id).
		Distinct().
		Order("store_id").
		Pluck("store_id", &stores).Error
	return stores, err
}

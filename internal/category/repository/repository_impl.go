package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/category/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Create(category).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Category, error) {
	var category domain.Category
	err := db.WithContext(ctx).Raw(
		`SELECT id, category_name, store_id, created_at, updated_at
		 FROM tbl_category WHERE id = ?`,
		id,
	).Scan(&category).Error
	if err != nil {
		return nil, err
	}
	if category.ID == 0 {
		return nil, nil
	}
	return &category, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Category, error) {
	var items []domain.Category
	stmt := filter.Scope.Apply(db.WithContext(ctx).Model(&domain.Category{}), "store_id", "")
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		stmt = stmt.Where("LOWER(category_name) LIKE ?", "%"+search+"%")
	}
	if err := stmt.Order("category_name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Rename(ctx context.Context, db *gorm.DB, category *domain.Category) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tbl_category SET category_name = ?, updated_at = ? WHERE id = ?`,
		category.Name,
		category.UpdatedAt,
		category.ID,
	).Error
}

// Delete removes the category together with its bin rows.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM tbl_bin WHERE category_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM tbl_category WHERE id = ?`, id).Error
}

func (r *repo) CountProducts(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM tbl_products WHERE category_id = ?`, id).Scan(&count).Error
	return count, err
}

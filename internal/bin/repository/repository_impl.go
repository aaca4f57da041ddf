package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/bin/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) EnsureRow(ctx context.Context, db *gorm.DB, key domain.Key, now time.Time) error {
	row := domain.Flag{CategoryID: key.CategoryID, StoreID: key.StoreID, Value: domain.StateClear, UpdatedAt: now}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *repo) LockRow(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.Flag, error) {
	var flag domain.Flag
	err := db.WithContext(ctx).Raw(
		`SELECT category_id, store_id, value, updated_at
		 FROM tbl_bin
		 WHERE category_id = ? AND store_id = ?
		 FOR UPDATE`,
		key.CategoryID,
		key.StoreID,
	).Scan(&flag).Error
	if err != nil {
		return nil, err
	}
	if flag.CategoryID == 0 {
		return nil, nil
	}
	return &flag, nil
}

// CountDisposing counts lines of the key still holding disposed units, the line
// being mutated excluded.
func (r *repo) CountDisposing(ctx context.Context, db *gorm.DB, key domain.Key, excludeLineID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM tbl_order o
		 JOIN tbl_products p ON p.products_id = o.products_id
		 WHERE p.category_id = ? AND o.store_id = ? AND o.disquantity > 0 AND o.id <> ?`,
		key.CategoryID,
		key.StoreID,
		excludeLineID,
	).Scan(&count).Error
	return count, err
}

func (r *repo) UpdateValue(ctx context.Context, db *gorm.DB, key domain.Key, value domain.State, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tbl_bin SET value = ?, updated_at = ? WHERE category_id = ? AND store_id = ?`,
		value,
		now,
		key.CategoryID,
		key.StoreID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.FlagView, error) {
	var rows []domain.FlagView
	stmt := db.WithContext(ctx).
		Table("tbl_bin b").
		Select("b.category_id, c.category_name, b.store_id, s.store_name, b.value").
		Joins("JOIN tbl_category c ON c.id = b.category_id").
		Joins("JOIN tbl_stores s ON s.store_id = b.store_id")
	stmt = filter.Scope.Apply(stmt, "b.store_id", "")
	if filter.OnlyFlagged {
		stmt = stmt.Where("b.value = ?", domain.StateFlagged)
	}
	if err := stmt.Order("s.store_name, c.category_name").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

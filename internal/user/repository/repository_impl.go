package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/user/domain"
	"gorm.io/gorm"
)

const userColumns = `id, firstname, lastname, email, password, role, store_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) LockByID(ctx context.Context, db *gorm.DB, id int64) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Raw(
		`SELECT `+userColumns+` FROM tbl_users WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Find(&user).Error
	if err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, nil
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.User, int64, error) {
	listQuery := func() *gorm.DB {
		stmt := filter.Scope.Apply(db.WithContext(ctx).Model(&domain.User{}), "store_id", "")
		if filter.Role != "" {
			stmt = stmt.Where("role = ?", filter.Role)
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			like := "%" + search + "%"
			stmt = stmt.Where("(LOWER(email) LIKE ? OR LOWER(firstname) LIKE ? OR LOWER(lastname) LIKE ?)", like, like, like)
		}
		return stmt
	}

	var total int64
	if err := listQuery().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.User
	err := listQuery().
		Order("id ASC").
		Offset(filter.Page.Offset()).
		Limit(filter.Page.Limit()).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Exec(
		`UPDATE tbl_users
		 SET firstname = ?, lastname = ?, email = ?, password = ?, role = ?, store_id = ?, updated_at = ?
		 WHERE id = ?`,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.StoreID,
		user.UpdatedAt,
		user.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM tbl_sessions WHERE user_id = ?`, id).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM tbl_users WHERE id = ?`, id).Error
}

// LockRole locks every account holding role and returns their ids. Demotions and
// deletions of root_admin accounts serialize on it.
func (r *repo) LockRole(ctx context.Context, db *gorm.DB, role access.Role) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM tbl_users WHERE role = ? ORDER BY id FOR UPDATE`,
		role,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) StoreExists(ctx context.Context, db *gorm.DB, storeID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM tbl_stores WHERE store_id = ?`, storeID).Scan(&count).Error
	return count > 0, err
}

package domain

import (
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
)

// User is an operator account. PasswordHash holds an argon2id encoding and never
// leaves the service.
type User struct {
	ID           int64       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName    string      `gorm:"column:firstname" json:"first_name"`
	LastName     string      `gorm:"column:lastname" json:"last_name"`
	Email        string      `gorm:"column:email;not null;uniqueIndex" json:"email"`
	PasswordHash string      `gorm:"column:password;not null" json:"-"`
	Role         access.Role `gorm:"column:role;not null" json:"role"`
	StoreID      *int64      `gorm:"column:store_id" json:"store_id,omitempty"`
	CreatedAt    time.Time   `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string { return "tbl_users" }

func (u *User) Account() access.Account {
	return access.Account{ID: u.ID, Role: u.Role, StoreID: u.StoreID}
}

func (u *User) Actor() access.Actor {
	return access.Actor{UserID: u.ID, Email: u.Email, Role: u.Role, StoreID: u.StoreID}
}

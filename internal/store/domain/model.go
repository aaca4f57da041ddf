package domain

import "time"

// Store is a shop location. Products, categories, orders and bins are scoped to it.
type Store struct {
	ID        int64     `gorm:"column:store_id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:store_name;not null" json:"name"`
	Slug      string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Store) TableName() string { return "tbl_stores" }

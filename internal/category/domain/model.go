package domain

import "time"

// Category groups products and keys the disposal bins. A nil StoreID marks a
// category shared by every store.
type Category struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:category_name;not null" json:"name"`
	StoreID   *int64    `gorm:"column:store_id" json:"store_id,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Category) TableName() string { return "tbl_category" }

func (c *Category) Global() bool {
	return c.StoreID == nil
}

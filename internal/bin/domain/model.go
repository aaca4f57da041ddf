package domain

import "time"

type State int

const (
	StateClear   State = 0
	StateFlagged State = 1
)

func (s State) String() string {
	if s == StateFlagged {
		return "flagged"
	}
	return "clear"
}

// Key identifies one bin: a category within a store.
type Key struct {
	CategoryID int64
	StoreID    int64
}

// Flag is the stored bin row.
type Flag struct {
	CategoryID int64     `gorm:"column:category_id;primaryKey" json:"category_id"`
	StoreID    int64     `gorm:"column:store_id;primaryKey" json:"store_id"`
	Value      State     `gorm:"column:value" json:"value"`
	UpdatedAt  time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Flag) TableName() string { return "tbl_bin" }

// FlagView is a bin row joined with its category and store names.
type FlagView struct {
	CategoryID   int64  `gorm:"column:category_id" json:"category_id"`
	CategoryName string `gorm:"column:category_name" json:"category_name"`
	StoreID      int64  `gorm:"column:store_id" json:"store_id"`
	StoreName    string `gorm:"column:store_name" json:"store_name"`
	Value        State  `gorm:"column:value" json:"value"`
}

func (v FlagView) Flagged() bool { return v.Value == StateFlagged }

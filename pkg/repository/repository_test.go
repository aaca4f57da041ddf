package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/trashforcoin/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	WidgetID int64  `gorm:"column:widget_id;primaryKey"`
	Name     string `gorm:"column:name"`
}

func (widget) TableName() string { return "tbl_widgets" }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Exec(`CREATE TABLE tbl_widgets (widget_id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL)`).Error; err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	repo := ProvideStore[widget](setupTestDB(t))

	w := &widget{Name: "bottle"}
	require.NoError(t, repo.Create(ctx, w))
	require.NotZero(t, w.WidgetID)

	require.NoError(t, repo.Update(ctx, w.WidgetID, map[string]any{"name": "can"}))
	got, err := repo.FindByID(ctx, w.WidgetID)
	require.NoError(t, err)
	assert.Equal(t, "can", got.Name)

	require.NoError(t, repo.BatchCreate(ctx, []*widget{{Name: "jar"}, {Name: "box"}}))
	items, err := repo.Find(ctx, &widget{}, option.WithSortBy(option.WithQuerySortBy("name", "asc", map[string]bool{"name": true})))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "box", items[0].Name)

	require.NoError(t, repo.Delete(ctx, w.WidgetID))
	missing, err := repo.FindByID(ctx, w.WidgetID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	count, err := repo.Count(ctx, &widget{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

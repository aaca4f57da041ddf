package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/internal/category/repository"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func storeRef(id int64) *int64 { return &id }

var (
	root           = access.Actor{UserID: 1, Email: "root@example.com", Role: access.RoleRootAdmin}
	moderatorNorth = access.Actor{UserID: 2, Email: "mod@example.com", Role: access.RoleModerator, StoreID: storeRef(7)}
	moderatorSouth = access.Actor{UserID: 3, Email: "south@example.com", Role: access.RoleModerator, StoreID: storeRef(9)}
	memberNorth    = access.Actor{UserID: 4, Email: "member@example.com", Role: access.RoleMember, StoreID: storeRef(7)}
)

func setupCategories(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, dbtest.Schema...)
	require.NoError(t, db.Exec(`INSERT INTO tbl_stores (store_id, store_name, slug) VALUES (7, 'North', 'north'), (9, 'South', 'south')`).Error)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestCreateCategoryStore(t *testing.T) {
	svc, _ := setupCategories(t)
	ctx := context.Background()

	shared, err := svc.Create(ctx, root, domain.CreateRequest{Name: "Bottles"})
	require.NoError(t, err)
	assert.True(t, shared.Global())

	local, err := svc.Create(ctx, moderatorNorth, domain.CreateRequest{Name: " Cans "})
	require.NoError(t, err)
	require.NotNil(t, local.StoreID)
	assert.Equal(t, int64(7), *local.StoreID)
	assert.Equal(t, "Cans", local.Name)

	tests := []struct {
		name  string
		actor access.Actor
		req   domain.CreateRequest
		err   error
	}{
		{"blank name", root, domain.CreateRequest{Name: " "}, domain.ErrInvalidName},
		{"other store", moderatorNorth, domain.CreateRequest{Name: "Jars", StoreID: storeRef(9)}, access.ErrPermissionDenied},
		{"member", memberNorth, domain.CreateRequest{Name: "Jars"}, access.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.actor, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestListCategoriesIncludesShared(t *testing.T) {
	svc, _ := setupCategories(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, root, domain.CreateRequest{Name: "Bottles"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, moderatorNorth, domain.CreateRequest{Name: "Cans"})
	require.NoError(t, err)
	south, err := svc.Create(ctx, moderatorSouth, domain.CreateRequest{Name: "Cartons"})
	require.NoError(t, err)

	items, err := svc.List(ctx, memberNorth, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Bottles", items[0].Name)
	assert.Equal(t, "Cans", items[1].Name)

	items, err = svc.List(ctx, root, domain.ListRequest{StoreID: storeRef(9)})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.List(ctx, root, domain.ListRequest{Search: "CAR"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, south.ID, items[0].ID)

	_, err = svc.Get(ctx, memberNorth, south.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenameAndDeleteCategory(t *testing.T) {
	svc, db := setupCategories(t)
	ctx := context.Background()

	shared, err := svc.Create(ctx, root, domain.CreateRequest{Name: "Bottles"})
	require.NoError(t, err)
	local, err := svc.Create(ctx, moderatorNorth, domain.CreateRequest{Name: "Cans"})
	require.NoError(t, err)

	_, err = svc.Rename(ctx, moderatorNorth, domain.RenameRequest{ID: shared.ID, Name: "Glass"})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	renamed, err := svc.Rename(ctx, moderatorNorth, domain.RenameRequest{ID: local.ID, Name: "Tins"})
	require.NoError(t, err)
	assert.Equal(t, "Tins", renamed.Name)

	require.NoError(t, db.Exec(
		`INSERT INTO tbl_products (products_name, price, stock_quantity, category_id, barcode_id, store_id) VALUES ('Can', 1, 1, ?, '4006381333948', 7)`,
		local.ID,
	).Error)
	assert.ErrorIs(t, svc.Delete(ctx, moderatorNorth, local.ID), domain.ErrInUse)

	require.NoError(t, db.Exec(`DELETE FROM tbl_products`).Error)
	require.NoError(t, db.Exec(`INSERT INTO tbl_bin (category_id, store_id, value) VALUES (?, 7, 1)`, local.ID).Error)
	require.NoError(t, svc.Delete(ctx, moderatorNorth, local.ID))

	var bins int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM tbl_bin WHERE category_id = ?`, local.ID).Scan(&bins).Error)
	assert.Zero(t, bins)

	_, err = svc.Get(ctx, root, local.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

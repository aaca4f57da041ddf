package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	"github.com/smallbiznis/trashforcoin/internal/inventory/repository"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t, dbtest.Schema...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	require.NoError(t, db.Exec(`INSERT INTO tbl_stores (store_id, store_name, slug) VALUES (7, 'North', 'north'), (9, 'South', 'south')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO tbl_category (id, category_name, store_id) VALUES (1, 'Bottles', 7)`).Error)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func seedProduct(t *testing.T, db *gorm.DB, id int64, stock int64, code string, store *int64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO tbl_products (products_id, products_name, price, stock_quantity, category_id, barcode_id, store_id) VALUES (?, ?, ?, ?, 1, ?, ?)`,
		id, "Product", "10.00", stock, code, store,
	).Error)
}

func stockOf(t *testing.T, db *gorm.DB, id int64) int64 {
	t.Helper()
	var stock int64
	require.NoError(t, db.Raw(`SELECT stock_quantity FROM tbl_products WHERE products_id = ?`, id).Scan(&stock).Error)
	return stock
}

func inTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(context.Background()).Transaction(fn)
}

func TestReserveAndRelease(t *testing.T) {
	svc, db := setupLedger(t)
	store := int64(7)
	seedProduct(t, db, 1, 5, "0000000000001", &store)
	ctx := context.Background()

	var level domain.StockLevel
	err := inTx(db, func(tx *gorm.DB) error {
		var err error
		level, err = svc.Reserve(ctx, tx, domain.Change{ProductID: 1, Quantity: 3, Reference: LineReference(11)})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), level.Before)
	assert.Equal(t, int64(2), level.After)
	assert.Equal(t, int64(2), stockOf(t, db, 1))

	err = inTx(db, func(tx *gorm.DB) error {
		_, err := svc.Reserve(ctx, tx, domain.Change{ProductID: 1, Quantity: 3})
		return err
	})
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(2), insufficient.Available)
	assert.Equal(t, int64(3), insufficient.Requested)
	assert.Equal(t, int64(2), stockOf(t, db, 1))

	require.NoError(t, inTx(db, func(tx *gorm.DB) error {
		_, err := svc.Release(ctx, tx, domain.Change{ProductID: 1, Quantity: 10})
		return err
	}))
	assert.Equal(t, int64(12), stockOf(t, db, 1))
}

func TestRejectsNonPositiveQuantities(t *testing.T) {
	svc, db := setupLedger(t)
	seedProduct(t, db, 1, 5, "0000000000001", nil)
	ctx := context.Background()

	_, err := svc.Reserve(ctx, db, domain.Change{ProductID: 1, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Release(ctx, db, domain.Change{ProductID: 1, Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	_, err = svc.Reserve(ctx, db, domain.Change{ProductID: 99, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAdjustRollsBackWholeTransaction(t *testing.T) {
	svc, db := setupLedger(t)
	seedProduct(t, db, 1, 5, "0000000000001", nil)
	seedProduct(t, db, 2, 1, "0000000000002", nil)
	ctx := context.Background()

	err := inTx(db, func(tx *gorm.DB) error {
		if _, err := svc.Adjust(ctx, tx, domain.Change{ProductID: 1, Quantity: 4}); err != nil {
			return err
		}
		_, err := svc.Adjust(ctx, tx, domain.Change{ProductID: 2, Quantity: -2})
		return err
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(5), stockOf(t, db, 1))
	assert.Equal(t, int64(1), stockOf(t, db, 2))

	var movements int64
	require.NoError(t, db.Table("tbl_stock_movements").Count(&movements).Error)
	assert.Zero(t, movements)
}

func TestSetWritesMovement(t *testing.T) {
	svc, db := setupLedger(t)
	store := int64(7)
	seedProduct(t, db, 1, 5, "0000000000001", &store)
	ctx := context.Background()

	_, err := svc.Set(ctx, db, 1, -1, domain.Reference{})
	assert.ErrorIs(t, err, domain.ErrNegativeStock)

	level, err := svc.Set(ctx, db, 1, 8, domain.Reference{Type: "product", ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), level.After)

	var movement domain.Movement
	require.NoError(t, db.First(&movement).Error)
	assert.Equal(t, domain.MovementSet, movement.Kind)
	assert.Equal(t, int64(3), movement.QuantityDelta)
	assert.Equal(t, int64(5), movement.StockBefore)
	assert.Equal(t, int64(8), movement.StockAfter)
	assert.NotEmpty(t, movement.CorrelationID)
	require.NotNil(t, movement.StoreID)
	assert.Equal(t, int64(7), *movement.StoreID)
}

func TestEnsureUniqueBarcode(t *testing.T) {
	svc, db := setupLedger(t)
	store7, store9 := int64(7), int64(9)
	seedProduct(t, db, 1, 5, "1234567890123", &store7)
	ctx := context.Background()

	assert.ErrorIs(t, svc.EnsureUniqueBarcode(ctx, db, &store7, "1234567890123", 0), domain.ErrDuplicateBarcode)
	assert.NoError(t, svc.EnsureUniqueBarcode(ctx, db, &store7, "1234567890123", 1))
	assert.NoError(t, svc.EnsureUniqueBarcode(ctx, db, &store9, "1234567890123", 0))
	assert.NoError(t, svc.EnsureUniqueBarcode(ctx, db, nil, "1234567890123", 0))
	assert.ErrorIs(t, svc.EnsureUniqueBarcode(ctx, db, &store7, "12345", 0), domain.ErrInvalidBarcode)
}

func TestMovementsScopedAndPaged(t *testing.T) {
	svc, db := setupLedger(t)
	store7, store9 := int64(7), int64(9)
	seedProduct(t, db, 1, 50, "0000000000001", &store7)
	seedProduct(t, db, 2, 50, "0000000000002", &store9)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Reserve(ctx, db, domain.Change{ProductID: 1, Quantity: 1})
		require.NoError(t, err)
	}
	_, err := svc.Reserve(ctx, db, domain.Change{ProductID: 2, Quantity: 1})
	require.NoError(t, err)

	admin := access.Actor{UserID: 1, Role: access.RoleAdministrator, StoreID: &store7}
	page, err := svc.Movements(ctx, admin, domain.ListMovementsRequest{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Movements, 2)
	require.NotEmpty(t, page.NextPageToken)

	next, err := svc.Movements(ctx, admin, domain.ListMovementsRequest{PageSize: 2, PageToken: page.NextPageToken})
	require.NoError(t, err)
	assert.Len(t, next.Movements, 1)

	_, err = svc.Movements(ctx, access.Actor{UserID: 2, Role: access.RoleMember, StoreID: &store7}, domain.ListMovementsRequest{})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

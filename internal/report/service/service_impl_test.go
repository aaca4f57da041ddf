package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"github.com/smallbiznis/trashforcoin/internal/report/domain"
	"github.com/smallbiznis/trashforcoin/internal/report/repository"
	"github.com/smallbiznis/trashforcoin/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func storeRef(id int64) *int64 { return &id }

var (
	root           = access.Actor{UserID: 1, Email: "root@example.com", Role: access.RoleRootAdmin}
	moderatorNorth = access.Actor{UserID: 2, Email: "mod@example.com", Role: access.RoleModerator, StoreID: storeRef(7)}
	memberNorth    = access.Actor{UserID: 3, Email: "member@example.com", Role: access.RoleMember, StoreID: storeRef(7)}
)

func setupReports(t *testing.T) domain.Service {
	t.Helper()
	db := dbtest.Open(t, dbtest.Schema...)
	for _, stmt := range []string{
		`INSERT INTO tbl_stores (store_id, store_name, slug) VALUES (7, 'North', 'north'), (9, 'South', 'south')`,
		`INSERT INTO tbl_users (id, email, password, role, store_id) VALUES
			(1, 'root@example.com', 'x', 'root_admin', NULL),
			(2, 'mod@example.com', 'x', 'moderator', 7),
			(3, 'member@example.com', 'x', 'member', 7),
			(4, 'south@example.com', 'x', 'moderator', 9)`,
		`INSERT INTO tbl_category (id, category_name, store_id) VALUES (1, 'Bottles', NULL), (2, 'Cans', 7), (3, 'Cartons', 9)`,
		`INSERT INTO tbl_products (products_id, products_name, price, stock_quantity, category_id, barcode_id, store_id) VALUES
			(10, 'Bottle', 2, 3, 1, '4006381333931', 7),
			(11, 'Can', 5, 20, 2, '4006381333948', 7),
			(12, 'Carton', 1, 0, 3, '4006381333955', 9),
			(13, 'Jar', 1, 50, 1, '4006381333962', NULL)`,
		`INSERT INTO tbl_order (id, order_id, products_id, products_name, quantity, disquantity, email, receipt_barcode, store_id, price_per_unit, order_date) VALUES
			(1, '100001', 10, 'Bottle', 2, 1, 'member@example.com', '1000000000001', 7, 2, '2026-03-01 10:00:00'),
			(2, '100001', 11, 'Can', 1, 0, 'member@example.com', '1000000000001', 7, 5, '2026-03-01 10:00:00'),
			(3, '100002', 10, 'Bottle', 1, 0, 'mod@example.com', NULL, 7, 2, '2026-03-02 10:00:00'),
			(4, '100001', 12, 'Carton', 4, 0, 'south@example.com', '1000000000002', 9, 1, '2026-03-02 11:00:00')`,
		`INSERT INTO tbl_bin (category_id, store_id, value) VALUES (1, 7, 1), (2, 7, 0), (3, 9, 1)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repository.Provide(),
		Operations: config.NewStaticOperationsConfigHolder(config.DefaultOperationsConfig()),
	})
}

func TestDashboardFollowsRoleScope(t *testing.T) {
	svc := setupReports(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   access.Actor
		storeID *int64
		want    domain.Dashboard
	}{
		{"root", root, nil, domain.Dashboard{
			Stores: 2, Users: 4, Categories: 3, Products: 4, LowStock: 2, StockUnits: 73,
			Orders: 2, OpenCartLines: 1, FlaggedBins: 2,
		}},
		{"root filtered to south", root, storeRef(9), domain.Dashboard{
			StoreID: storeRef(9), Stores: 1, Users: 1, Categories: 2, Products: 2, LowStock: 1, StockUnits: 50,
			Orders: 1, OpenCartLines: 0, FlaggedBins: 1,
		}},
		{"moderator", moderatorNorth, nil, domain.Dashboard{
			Stores: 1, Users: 2, Categories: 2, Products: 3, LowStock: 1, StockUnits: 73,
			Orders: 1, OpenCartLines: 1, FlaggedBins: 1,
		}},
		{"member", memberNorth, nil, domain.Dashboard{
			Stores: 1, Users: 0, Categories: 2, Products: 3, LowStock: 1, StockUnits: 73,
			Orders: 1, OpenCartLines: 0, FlaggedBins: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Dashboard(ctx, tt.actor, tt.storeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := svc.Dashboard(ctx, moderatorNorth, storeRef(9))
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestOrdersProjection(t *testing.T) {
	svc := setupReports(t)
	ctx := context.Background()

	resp, err := svc.Orders(ctx, root, domain.OrdersRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 4)
	assert.Equal(t, int64(4), resp.PageInfo.Total)

	first := resp.Rows[0]
	assert.Equal(t, int64(4), first.LineID)
	assert.Equal(t, "South", first.StoreName)
	assert.Equal(t, "Cartons", first.CategoryName)
	assert.Equal(t, "4", first.Subtotal.String())

	completed, err := svc.Orders(ctx, root, domain.OrdersRequest{CompletedOnly: true})
	require.NoError(t, err)
	assert.Len(t, completed.Rows, 3)

	byReceipt, err := svc.Orders(ctx, root, domain.OrdersRequest{ReceiptBarcode: "1000000000001"})
	require.NoError(t, err)
	require.Len(t, byReceipt.Rows, 2)
	assert.Equal(t, "Bottles", byReceipt.Rows[1].CategoryName)
	assert.Equal(t, int64(1), byReceipt.Rows[1].Disquantity)
}

func TestOrdersScope(t *testing.T) {
	svc := setupReports(t)
	ctx := context.Background()

	own, err := svc.Orders(ctx, memberNorth, domain.OrdersRequest{})
	require.NoError(t, err)
	require.Len(t, own.Rows, 2)
	assert.Equal(t, int64(3), own.TotalQuantity)
	assert.Equal(t, "9", own.TotalPrice.String())
	for _, row := range own.Rows {
		assert.Equal(t, "member@example.com", row.Email)
	}

	store, err := svc.Orders(ctx, moderatorNorth, domain.OrdersRequest{})
	require.NoError(t, err)
	assert.Len(t, store.Rows, 3)

	_, err = svc.Orders(ctx, moderatorNorth, domain.OrdersRequest{StoreID: storeRef(9)})
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
}

func TestOrdersDateRange(t *testing.T) {
	svc := setupReports(t)
	ctx := context.Background()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	resp, err := svc.Orders(ctx, root, domain.OrdersRequest{From: &day, To: &day})
	require.NoError(t, err)
	assert.Len(t, resp.Rows, 2)

	before := day.Add(-48 * time.Hour)
	_, err = svc.Orders(ctx, root, domain.OrdersRequest{From: &day, To: &before})
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestStoreSnapshots(t *testing.T) {
	svc := setupReports(t)

	rows, err := svc.StoreSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.StoreSnapshot{
		StoreID: 7, StoreName: "North", Slug: "north",
		Products: 2, StockUnits: 23, LowStock: 1, FlaggedBins: 1, OpenCartLines: 1,
	}, rows[0])
	assert.Equal(t, domain.StoreSnapshot{
		StoreID: 9, StoreName: "South", Slug: "south",
		Products: 1, StockUnits: 0, LowStock: 1, FlaggedBins: 1, OpenCartLines: 0,
	}, rows[1])
}

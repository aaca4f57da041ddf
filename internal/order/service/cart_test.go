package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/barcode"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	inventorydomain "github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedOrderIDs(t *testing.T, db *gorm.DB, storeID int64, orderIDs ...string) {
	t.Helper()
	for _, orderID := range orderIDs {
		require.NoError(t, db.Exec(
			`INSERT INTO tbl_order (order_id, products_id, products_name, quantity, disquantity, email, store_id, price_per_unit, order_date)
			 VALUES (?, 10, 'Bottle', 1, 0, 'old@example.com', ?, 10, CURRENT_TIMESTAMP)`,
			orderID, storeID,
		).Error)
	}
}

func TestAllocateCartOrderID(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	seedOrderIDs(t, db, 7, "100001", "100002", "walk-in")

	north := &cartsession.Session{Key: "north"}
	orderID, err := svc.AllocateCartOrderID(ctx, moderatorNorth, north, nil)
	require.NoError(t, err)
	assert.Equal(t, "100003", orderID)
	require.NotNil(t, north.StoreID)
	assert.Equal(t, int64(7), *north.StoreID)

	again, err := svc.AllocateCartOrderID(ctx, moderatorNorth, north, nil)
	require.NoError(t, err)
	assert.Equal(t, "100003", again)

	south := &cartsession.Session{Key: "south"}
	orderID, err = svc.AllocateCartOrderID(ctx, moderatorSouth, south, nil)
	require.NoError(t, err)
	assert.Equal(t, "100001", orderID)

	// A second cashier in the same store never reuses an id handed out but not yet used.
	other := &cartsession.Session{Key: "other"}
	orderID, err = svc.AllocateCartOrderID(ctx, memberNorth, other, nil)
	require.NoError(t, err)
	assert.Equal(t, "100004", orderID)
}

func TestAllocateCartOrderIDRules(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()

	_, err := svc.AllocateCartOrderID(ctx, rootActor, &cartsession.Session{Key: "root"}, nil)
	assert.ErrorIs(t, err, domain.ErrStoreRequired)

	orderID, err := svc.AllocateCartOrderID(ctx, rootActor, &cartsession.Session{Key: "root"}, storeRef(9))
	require.NoError(t, err)
	assert.Equal(t, "100001", orderID)

	_, err = svc.AllocateCartOrderID(ctx, viewerNorth, &cartsession.Session{Key: "viewer"}, nil)
	assert.ErrorIs(t, err, access.ErrPermissionDenied)

	_, err = svc.AllocateCartOrderID(ctx, moderatorNorth, nil, nil)
	assert.ErrorIs(t, err, domain.ErrSessionRequired)
}

func TestAllocateCartOrderIDDeniedStoreLeavesSession(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()

	sess := &cartsession.Session{Key: "member"}
	_, err := svc.AllocateCartOrderID(ctx, memberNorth, sess, storeRef(9))
	assert.ErrorIs(t, err, access.ErrPermissionDenied)
	assert.Nil(t, sess.StoreID)
	assert.Empty(t, sess.OrderID)

	orderID, err := svc.AllocateCartOrderID(ctx, memberNorth, sess, nil)
	require.NoError(t, err)
	assert.Equal(t, "100001", orderID)
	require.NotNil(t, sess.StoreID)
	assert.Equal(t, int64(7), *sess.StoreID)
}

func TestCheckoutTotalsAndClearsSession(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	sess := &cartsession.Session{Key: "till-1"}

	_, err := svc.CartAdd(ctx, memberNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.CartAdd(ctx, memberNorth, sess, domain.CartAddRequest{ProductID: productQ, Quantity: 3})
	require.NoError(t, err)

	cart, err := svc.CartLines(ctx, memberNorth, sess)
	require.NoError(t, err)
	assert.Equal(t, "100001", cart.OrderID)
	assert.Len(t, cart.Lines, 2)
	assert.Equal(t, int64(5), cart.TotalQuantity)

	receipt, err := svc.Checkout(ctx, memberNorth, sess)
	require.NoError(t, err)
	assert.Equal(t, "100001", receipt.OrderID)
	assert.Equal(t, int64(5), receipt.TotalQuantity)
	assert.Equal(t, "35.00", receipt.TotalPrice.StringFixed(2))
	assert.Len(t, receipt.ReceiptBarcode, barcode.Digits)
	assert.Equal(t, "member@example.com", receipt.Email)
	for _, line := range receipt.Lines {
		require.NotNil(t, line.ReceiptBarcode)
		assert.Equal(t, receipt.ReceiptBarcode, *line.ReceiptBarcode)
	}

	assert.False(t, sess.HasOpenOrder())
	assert.Nil(t, sess.StoreID)
	assert.Equal(t, receipt.ReceiptBarcode, sess.LastReceiptBarcode)

	var stamped int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM tbl_order WHERE receipt_barcode = ?`, receipt.ReceiptBarcode).Scan(&stamped).Error)
	assert.Equal(t, int64(2), stamped)
	assert.Equal(t, int64(3), stockOf(t, db, productP))
	assert.Equal(t, int64(7), stockOf(t, db, productQ))

	_, err = svc.Checkout(ctx, memberNorth, sess)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	cart, err = svc.CartLines(ctx, memberNorth, sess)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestCheckoutEmptyCart(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, moderatorNorth, &cartsession.Session{Key: "empty"})
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	sess := &cartsession.Session{Key: "allocated"}
	_, err = svc.AllocateCartOrderID(ctx, moderatorNorth, sess, nil)
	require.NoError(t, err)
	_, err = svc.Checkout(ctx, moderatorNorth, sess)
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)
	assert.True(t, sess.HasOpenOrder())
}

func TestCheckoutRetriesReceiptBarcodeCollisions(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	require.NoError(t, db.Exec(
		`INSERT INTO tbl_order (order_id, products_id, products_name, quantity, disquantity, email, receipt_barcode, store_id, price_per_unit, order_date)
		 VALUES ('99', 10, 'Bottle', 1, 0, 'old@example.com', '1111111111111', 7, 10, CURRENT_TIMESTAMP)`,
	).Error)

	codes := []string{"1111111111111", "2222222222222"}
	svc.receiptCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	sess := &cartsession.Session{Key: "till"}
	_, err := svc.CartAdd(ctx, moderatorNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 1})
	require.NoError(t, err)

	receipt, err := svc.Checkout(ctx, moderatorNorth, sess)
	require.NoError(t, err)
	assert.Equal(t, "2222222222222", receipt.ReceiptBarcode)
}

func TestCheckoutGivesUpAfterAttempts(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	require.NoError(t, db.Exec(
		`INSERT INTO tbl_order (order_id, products_id, products_name, quantity, disquantity, email, receipt_barcode, store_id, price_per_unit, order_date)
		 VALUES ('99', 10, 'Bottle', 1, 0, 'old@example.com', '1111111111111', 7, 10, CURRENT_TIMESTAMP)`,
	).Error)
	svc.receiptCode = func() (string, error) { return "1111111111111", nil }

	sess := &cartsession.Session{Key: "till"}
	line, err := svc.CartAdd(ctx, moderatorNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 1})
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, moderatorNorth, sess)
	assert.ErrorIs(t, err, domain.ErrReceiptBarcodeExhausted)
	assert.True(t, sess.HasOpenOrder())

	stored, err := svc.GetLine(ctx, moderatorNorth, line.ID)
	require.NoError(t, err)
	assert.True(t, stored.Open())
}

func TestScanAdd(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	sess := &cartsession.Session{Key: "scanner"}

	line, err := svc.ScanAdd(ctx, moderatorNorth, sess, "4006381333931")
	require.NoError(t, err)
	assert.Equal(t, productP, line.ProductID)
	assert.Equal(t, int64(1), line.Quantity)

	line, err = svc.ScanAdd(ctx, moderatorNorth, sess, " 4006381333931 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), line.Quantity)

	codec, err := barcode.EncodeID(productQ)
	require.NoError(t, err)
	line, err = svc.ScanAdd(ctx, moderatorNorth, sess, codec)
	require.NoError(t, err)
	assert.Equal(t, productQ, line.ProductID)

	_, err = svc.ScanAdd(ctx, moderatorNorth, sess, "12345")
	assert.ErrorIs(t, err, domain.ErrInvalidScanCode)

	_, err = svc.ScanAdd(ctx, moderatorNorth, sess, "4006381333955")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	assert.Equal(t, int64(3), stockOf(t, db, productP))
	assert.Equal(t, int64(9), stockOf(t, db, productQ))
}

func TestCartLineEditAndRemove(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	sess := &cartsession.Session{Key: "member"}

	line, err := svc.CartAdd(ctx, memberNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 1})
	require.NoError(t, err)

	edited, err := svc.EditCartLine(ctx, memberNorth, sess, line.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), edited.Quantity)
	assert.Equal(t, int64(1), stockOf(t, db, productP))

	_, err = svc.EditCartLine(ctx, memberNorth, sess, line.ID, 9)
	assert.ErrorIs(t, err, inventorydomain.ErrInsufficientStock)

	otherSess := &cartsession.Session{Key: "other"}
	_, err = svc.AllocateCartOrderID(ctx, moderatorNorth, otherSess, nil)
	require.NoError(t, err)
	err = svc.RemoveCartLine(ctx, moderatorNorth, otherSess, line.ID)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	require.NoError(t, svc.RemoveCartLine(ctx, memberNorth, sess, line.ID))
	assert.Equal(t, int64(5), stockOf(t, db, productP))
	assert.Equal(t, int64(0), countLines(t, db))
}

func TestCompletedLinesAreClosedToTheCart(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()
	sess := &cartsession.Session{Key: "till"}

	line, err := svc.CartAdd(ctx, moderatorNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 1})
	require.NoError(t, err)
	orderID, storeID := sess.OrderID, sess.StoreID

	_, err = svc.Checkout(ctx, moderatorNorth, sess)
	require.NoError(t, err)

	stale := &cartsession.Session{Key: "till", OrderID: orderID, StoreID: storeID}
	_, err = svc.EditCartLine(ctx, moderatorNorth, stale, line.ID, 2)
	assert.ErrorIs(t, err, domain.ErrLineClosed)

	added, err := svc.CartAdd(ctx, moderatorNorth, stale, domain.CartAddRequest{ProductID: productP, Quantity: 1})
	require.NoError(t, err)
	assert.NotEqual(t, line.ID, added.ID)
}

package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/trashforcoin/internal/barcode"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkedOut(t *testing.T, svc *Service) *domain.Receipt {
	t.Helper()
	ctx := context.Background()
	sess := &cartsession.Session{Key: "member"}
	_, err := svc.CartAdd(ctx, memberNorth, sess, domain.CartAddRequest{ProductID: productP, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.CartAdd(ctx, memberNorth, sess, domain.CartAddRequest{ProductID: productQ, Quantity: 1})
	require.NoError(t, err)
	receipt, err := svc.Checkout(ctx, memberNorth, sess)
	require.NoError(t, err)
	return receipt
}

func TestAddDisposalUpToQuantity(t *testing.T) {
	svc, db := setupEngine(t)
	ctx := context.Background()
	receipt := checkedOut(t, svc)

	line, err := svc.AddDisposal(ctx, memberNorth, domain.AddDisposalRequest{
		ReceiptBarcode: receipt.ReceiptBarcode,
		ProductCode:    "4006381333931",
	})
	require.NoError(t, err)
	assert.Equal(t, productP, line.ProductID)
	assert.Equal(t, int64(1), line.Disquantity)
	assert.Equal(t, 1, binValue(t, db, categoryBottles, 7))
	assert.Equal(t, 0, binValue(t, db, categoryCans, 7))

	codec, err := barcode.EncodeID(productP)
	require.NoError(t, err)
	line, err = svc.AddDisposal(ctx, moderatorNorth, domain.AddDisposalRequest{
		ReceiptBarcode: receipt.ReceiptBarcode,
		ProductCode:    codec,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), line.Disquantity)

	_, err = svc.AddDisposal(ctx, moderatorNorth, domain.AddDisposalRequest{
		ReceiptBarcode: receipt.ReceiptBarcode,
		ProductCode:    "4006381333931",
	})
	assert.ErrorIs(t, err, domain.ErrDisposalExceedsQuantity)

	// Disposal never touches stock.
	assert.Equal(t, int64(3), stockOf(t, db, productP))
}

func TestAddDisposalScope(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()
	receipt := checkedOut(t, svc)

	tests := []struct {
		name string
		err  error
		run  func() error
	}{
		{"other store", domain.ErrLineNotFound, func() error {
			_, err := svc.AddDisposal(ctx, moderatorSouth, domain.AddDisposalRequest{ReceiptBarcode: receipt.ReceiptBarcode, ProductCode: "4006381333931"})
			return err
		}},
		{"product not on receipt", domain.ErrLineNotFound, func() error {
			_, err := svc.AddDisposal(ctx, moderatorNorth, domain.AddDisposalRequest{ReceiptBarcode: receipt.ReceiptBarcode, ProductCode: "4006381333962"})
			return err
		}},
		{"malformed receipt", domain.ErrInvalidReceiptBarcode, func() error {
			_, err := svc.AddDisposal(ctx, moderatorNorth, domain.AddDisposalRequest{ReceiptBarcode: "abc", ProductCode: "4006381333931"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.err)
		})
	}
}

func TestReceiptLines(t *testing.T) {
	svc, _ := setupEngine(t)
	ctx := context.Background()
	receipt := checkedOut(t, svc)

	lines, err := svc.ReceiptLines(ctx, moderatorNorth, receipt.ReceiptBarcode)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, productP, lines[0].ProductID)

	_, err = svc.ReceiptLines(ctx, moderatorSouth, receipt.ReceiptBarcode)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)
}

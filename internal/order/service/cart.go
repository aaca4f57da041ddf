package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/barcode"
	"github.com/smallbiznis/trashforcoin/internal/cartsession"
	"github.com/smallbiznis/trashforcoin/internal/observability/metrics"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errSequenceMissing = errors.New("order sequence row missing")

// AllocateCartOrderID hands the session its cart order id on first use. The id is one
// past the larger of the store's highest numeric order id and its sequence row, which
// stays locked until commit so two cashiers never draw the same id. requested names the
// store for a fresh cart; it is pinned on the session only once the allocation succeeds.
func (s *Service) AllocateCartOrderID(ctx context.Context, actor access.Actor, sess *cartsession.Session, requested *int64) (string, error) {
	if !actor.Valid() {
		return "", access.ErrInvalidActor
	}
	if sess == nil {
		return "", domain.ErrSessionRequired
	}
	if sess.HasOpenOrder() {
		return sess.OrderID, nil
	}

	storeID, err := cartStore(actor, sess, requested)
	if err != nil {
		return "", err
	}
	if err := access.Decide(actor, access.ResourceCart, access.ActionCreate, &storeID); err != nil {
		return "", err
	}

	var orderID string
	err = s.observe("order.allocate_cart_order_id", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			start := time.Now()
			seq, err := s.repo.LockSequence(ctx, tx, storeID)
			s.consistency.ObserveDBLockWait(metrics.LockResourceOrderSequence, time.Since(start))
			if err != nil {
				return db.Infra(err)
			}
			if seq == nil {
				return db.Infra(errSequenceMissing)
			}

			highest, err := s.repo.MaxNumericOrderID(ctx, tx, storeID)
			if err != nil {
				return db.Infra(err)
			}
			if seq.LastOrderID > highest {
				highest = seq.LastOrderID
			}

			next := highest + 1
			if highest == 0 {
				next = s.operations.Get().FirstOrderID
			}
			seq.LastOrderID = next
			if err := s.repo.SaveSequence(ctx, tx, seq); err != nil {
				return db.Infra(err)
			}
			orderID = strconv.FormatInt(next, 10)
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	sess.OrderID = orderID
	sess.StoreID = &storeID
	s.log.Debug("cart order allocated", zap.Int64("store_id", storeID), zap.String("order_id", orderID))
	return orderID, nil
}

func (s *Service) CartAdd(ctx context.Context, actor access.Actor, sess *cartsession.Session, req domain.CartAddRequest) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if err := validateQuantities(req.Quantity, 0); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(actor.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.AllocateCartOrderID(ctx, actor, sess, nil); err != nil {
		return nil, err
	}
	storeID := *sess.StoreID
	if err := access.Decide(actor, access.ResourceCart, access.ActionCreate, &storeID); err != nil {
		return nil, err
	}

	var line *domain.Line
	err = s.observe("order.cart_add", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			product, err := s.visibleProduct(ctx, tx, actor, req.ProductID)
			if err != nil {
				return err
			}
			if product.StoreID != nil && *product.StoreID != storeID {
				return domain.ErrProductNotFound
			}
			line, err = s.addLine(ctx, tx, lineSpec{
				orderID:  sess.OrderID,
				product:  product,
				storeID:  storeID,
				email:    email,
				quantity: req.Quantity,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// ScanAdd puts one unit of the scanned product in the cart. The code is looked up as
// a catalog barcode first and then decoded as a codec barcode.
func (s *Service) ScanAdd(ctx context.Context, actor access.Actor, sess *cartsession.Session, code string) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	code = strings.TrimSpace(code)
	if len(code) != s.operations.Get().ScanBarcodeLength || strings.TrimLeft(code, "0123456789") != "" {
		s.metrics.RecordScan(ctx, "invalid")
		return nil, domain.ErrInvalidScanCode
	}
	email, err := normalizeEmail(actor.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.AllocateCartOrderID(ctx, actor, sess, nil); err != nil {
		return nil, err
	}
	storeID := *sess.StoreID
	if err := access.Decide(actor, access.ResourceCart, access.ActionCreate, &storeID); err != nil {
		return nil, err
	}

	var line *domain.Line
	outcome := "miss"
	err = s.observe("order.scan_add", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			product, how, err := s.resolveScan(ctx, tx, actor, code, storeID)
			if err != nil {
				return err
			}
			outcome = how
			line, err = s.addLine(ctx, tx, lineSpec{
				orderID:  sess.OrderID,
				product:  product,
				storeID:  storeID,
				email:    email,
				quantity: 1,
			})
			return err
		})
	})
	s.metrics.RecordScan(ctx, outcome)
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) resolveScan(ctx context.Context, tx *gorm.DB, actor access.Actor, code string, storeID int64) (*productdomain.Product, string, error) {
	product, err := s.repo.FindProductByBarcode(ctx, tx, code, storeID)
	if err != nil {
		return nil, "", db.Infra(err)
	}
	how := "catalog"
	if product == nil {
		id, decodeErr := barcode.DecodeID(code)
		if decodeErr != nil || id <= 0 {
			return nil, "", domain.ErrProductNotFound
		}
		product, err = s.repo.FindProduct(ctx, tx, id)
		if err != nil {
			return nil, "", db.Infra(err)
		}
		how = "codec"
	}
	if product == nil {
		return nil, "", domain.ErrProductNotFound
	}
	if product.StoreID != nil && *product.StoreID != storeID {
		return nil, "", domain.ErrProductNotFound
	}
	if !access.ScopeFor(actor, access.ResourceProduct).Allows(product.StoreID, "") {
		return nil, "", domain.ErrProductNotFound
	}
	return product, how, nil
}

func (s *Service) CartLines(ctx context.Context, actor access.Actor, sess *cartsession.Session) (domain.Cart, error) {
	if !actor.Valid() {
		return domain.Cart{}, access.ErrInvalidActor
	}
	if !sess.HasOpenOrder() || sess.StoreID == nil {
		return domain.Cart{Lines: []domain.Line{}, TotalPrice: decimal.Zero}, nil
	}

	storeID := *sess.StoreID
	if err := access.Decide(actor, access.ResourceCart, access.ActionRead, &storeID); err != nil {
		return domain.Cart{}, err
	}

	items, err := s.repo.ListOpenLines(ctx, s.db, domain.OpenLinesFilter{
		OrderID: sess.OrderID,
		StoreID: storeID,
		Email:   access.ScopeFor(actor, access.ResourceCart).Email,
	})
	if err != nil {
		return domain.Cart{}, db.Infra(err)
	}

	lines := derefLines(items)
	quantity, price := domain.Totals(lines)
	return domain.Cart{
		OrderID:       sess.OrderID,
		StoreID:       &storeID,
		TotalQuantity: quantity,
		TotalPrice:    price,
		Lines:         lines,
	}, nil
}

func (s *Service) EditCartLine(ctx context.Context, actor access.Actor, sess *cartsession.Session, lineID, quantity int64) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var line *domain.Line
	err := s.observe("order.edit_cart_line", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.lockCartLine(ctx, tx, actor, sess, lineID)
			if err != nil {
				return err
			}
			if err := access.DecideOwned(actor, access.ResourceCart, access.ActionUpdate, &current.StoreID, current.Email); err != nil {
				return err
			}
			if current.Disquantity > quantity {
				return domain.ErrInvalidDisquantity
			}
			product, err := s.lineProduct(ctx, tx, current.ProductID)
			if err != nil {
				return err
			}
			if err := s.applyEdit(ctx, tx, current, product, product, quantity, current.Disquantity); err != nil {
				return err
			}
			line = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *Service) RemoveCartLine(ctx context.Context, actor access.Actor, sess *cartsession.Session, lineID int64) error {
	if !actor.Valid() {
		return access.ErrInvalidActor
	}

	return s.observe("order.remove_cart_line", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			line, err := s.lockCartLine(ctx, tx, actor, sess, lineID)
			if err != nil {
				return err
			}
			if err := access.DecideOwned(actor, access.ResourceCart, access.ActionDelete, &line.StoreID, line.Email); err != nil {
				return err
			}
			return s.removeLine(ctx, tx, line)
		})
	})
}

// lockCartLine locks a line of the session's open cart. Lines of other carts are
// reported as missing, checked out lines as closed.
func (s *Service) lockCartLine(ctx context.Context, tx *gorm.DB, actor access.Actor, sess *cartsession.Session, lineID int64) (*domain.Line, error) {
	if !sess.HasOpenOrder() || sess.StoreID == nil {
		return nil, domain.ErrLineNotFound
	}
	line, err := s.lockVisibleLine(ctx, tx, actor, access.ResourceCart, lineID)
	if err != nil {
		return nil, err
	}
	if line.OrderID != sess.OrderID || line.StoreID != *sess.StoreID {
		return nil, domain.ErrLineNotFound
	}
	if !line.Open() {
		return nil, domain.ErrLineClosed
	}
	return line, nil
}

// Checkout closes the session's cart into a receipt. The lines stay as order history
// stamped with a fresh receipt barcode; the session forgets the cart order id.
func (s *Service) Checkout(ctx context.Context, actor access.Actor, sess *cartsession.Session) (*domain.Receipt, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if !sess.HasOpenOrder() || sess.StoreID == nil {
		return nil, domain.ErrEmptyOrder
	}

	storeID := *sess.StoreID
	if err := access.Decide(actor, access.ResourceCart, access.ActionUpdate, &storeID); err != nil {
		return nil, err
	}

	release, err := s.guard.Acquire(ctx, storeID, sess.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	var receipt *domain.Receipt
	err = s.observe("order.checkout", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			items, err := s.repo.ListOpenLines(ctx, tx, domain.OpenLinesFilter{
				OrderID: sess.OrderID,
				StoreID: storeID,
				Email:   access.ScopeFor(actor, access.ResourceCart).Email,
			})
			if err != nil {
				return db.Infra(err)
			}
			if len(items) == 0 {
				return domain.ErrEmptyOrder
			}

			code, err := s.issueReceiptBarcode(ctx, tx)
			if err != nil {
				return err
			}

			ids := make([]int64, 0, len(items))
			for _, item := range items {
				ids = append(ids, item.ID)
				stamped := code
				item.ReceiptBarcode = &stamped
			}
			if err := s.repo.StampReceipt(ctx, tx, ids, code); err != nil {
				return db.Infra(err)
			}

			lines := derefLines(items)
			quantity, price := domain.Totals(lines)
			receipt = &domain.Receipt{
				OrderID:        sess.OrderID,
				ReceiptBarcode: code,
				StoreID:        storeID,
				Email:          strings.ToLower(strings.TrimSpace(actor.Email)),
				TotalQuantity:  quantity,
				TotalPrice:     price,
				IssuedAt:       s.clock.Now(),
				Lines:          lines,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sess.ClearOrder()
	sess.LastReceiptBarcode = receipt.ReceiptBarcode

	s.metrics.RecordCheckout(ctx, storeID)
	s.log.Info("cart checked out",
		zap.Int64("store_id", storeID),
		zap.String("order_id", receipt.OrderID),
		zap.Int64("total_quantity", receipt.TotalQuantity),
		zap.String("total_price", receipt.TotalPrice.StringFixed(2)),
	)
	s.audit(ctx, storeID, "order.checkout", receipt.Lines[0].ID, map[string]any{
		"order_id":        receipt.OrderID,
		"receipt_barcode": receipt.ReceiptBarcode,
		"lines":           len(receipt.Lines),
	})
	return receipt, nil
}

// cartStore is the store a fresh cart rings up in: the requested one, else the one
// pinned on the session, else the actor's own store.
func cartStore(actor access.Actor, sess *cartsession.Session, requested *int64) (int64, error) {
	if requested != nil && *requested > 0 {
		return *requested, nil
	}
	if sess.StoreID != nil && *sess.StoreID > 0 {
		return *sess.StoreID, nil
	}
	if actor.StoreID != nil {
		return *actor.StoreID, nil
	}
	return 0, domain.ErrStoreRequired
}

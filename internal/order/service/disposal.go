package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/barcode"
	bindomain "github.com/smallbiznis/trashforcoin/internal/bin/domain"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"gorm.io/gorm"
)

// ReceiptLines returns the lines stamped with a receipt barcode that the actor may see.
func (s *Service) ReceiptLines(ctx context.Context, actor access.Actor, receiptBarcode string) ([]domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	code, err := parseReceiptBarcode(receiptBarcode)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.FindReceiptLines(ctx, s.db, code, access.ScopeFor(actor, access.ResourceOrder))
	if err != nil {
		return nil, db.Infra(err)
	}
	if len(items) == 0 {
		return nil, domain.ErrLineNotFound
	}
	return derefLines(items), nil
}

// AddDisposal records one returned unit against the receipt line of the scanned
// product and flags the product's bin.
func (s *Service) AddDisposal(ctx context.Context, actor access.Actor, req domain.AddDisposalRequest) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	code, err := parseReceiptBarcode(req.ReceiptBarcode)
	if err != nil {
		return nil, err
	}
	productCode := strings.TrimSpace(req.ProductCode)
	if productCode == "" {
		return nil, domain.ErrInvalidScanCode
	}
	decodedID, decodeErr := barcode.DecodeID(productCode)

	var line *domain.Line
	err = s.observe("order.add_disposal", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			items, err := s.repo.LockReceiptLines(ctx, tx, code)
			if err != nil {
				return db.Infra(err)
			}

			scope := access.ScopeFor(actor, access.ResourceOrder)
			matched := false
			for _, item := range items {
				storeID := item.StoreID
				if !scope.Allows(&storeID, item.Email) {
					continue
				}
				product, err := s.lineProduct(ctx, tx, item.ProductID)
				if err != nil {
					return err
				}
				if product.CatalogBarcode != productCode && (decodeErr != nil || decodedID != product.ID) {
					continue
				}
				matched = true
				if item.Disquantity >= item.Quantity {
					continue
				}
				if err := access.DecideOwned(actor, access.ResourceBin, access.ActionUpdate, &storeID, item.Email); err != nil {
					return err
				}

				item.Disquantity++
				if err := s.repo.UpdateLine(ctx, tx, item); err != nil {
					return db.Infra(err)
				}
				if err := s.refreshBin(ctx, tx, product.CategoryID, item.StoreID, item.ID, &bindomain.LineState{Disquantity: item.Disquantity}); err != nil {
					return err
				}
				s.metrics.RecordOrderLine(ctx, item.StoreID, "disposal")
				line = item
				return nil
			}
			if matched {
				return domain.ErrDisposalExceedsQuantity
			}
			return domain.ErrLineNotFound
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func parseReceiptBarcode(value string) (string, error) {
	code := strings.TrimSpace(value)
	if _, err := barcode.Parse(code); err != nil {
		return "", domain.ErrInvalidReceiptBarcode
	}
	return code, nil
}

package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	bindomain "github.com/smallbiznis/trashforcoin/internal/bin/domain"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	inventorydomain "github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	inventoryservice "github.com/smallbiznis/trashforcoin/internal/inventory/service"
	"github.com/smallbiznis/trashforcoin/internal/observability/metrics"
	"github.com/smallbiznis/trashforcoin/internal/order/domain"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/internal/ratelimit"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Repo        domain.Repository
	Inventory   inventorydomain.Service
	Bins        bindomain.Tracker
	Operations  *config.OperationsConfigHolder
	Guard       *ratelimit.CheckoutGuard    `optional:"true"`
	AuditSvc    auditdomain.Service         `optional:"true"`
	Metrics     *metrics.Metrics            `optional:"true"`
	Consistency *metrics.ConsistencyMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	inventory   inventorydomain.Service
	bins        bindomain.Tracker
	operations  *config.OperationsConfigHolder
	guard       *ratelimit.CheckoutGuard
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
	consistency *metrics.ConsistencyMetrics

	receiptCode func() (string, error)
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("order.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		inventory:   p.Inventory,
		bins:        p.Bins,
		operations:  p.Operations,
		guard:       p.Guard,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
		consistency: metrics.ConsistencyOrDefault(p.Consistency),
		receiptCode: randomReceiptBarcode,
	}
}

// lineSpec is a validated line about to be added or merged.
type lineSpec struct {
	orderID     string
	product     *productdomain.Product
	storeID     int64
	email       string
	quantity    int64
	disquantity int64
}

func (s *Service) AddLine(ctx context.Context, actor access.Actor, req domain.AddLineRequest) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrderID
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validateQuantities(req.Quantity, req.Disquantity); err != nil {
		return nil, err
	}

	var line *domain.Line
	err = s.observe("order.add_line", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			product, err := s.visibleProduct(ctx, tx, actor, req.ProductID)
			if err != nil {
				return err
			}
			storeID, err := resolveStore(actor, product, req.StoreID)
			if err != nil {
				return err
			}
			if err := access.Decide(actor, access.ResourceOrder, access.ActionCreate, &storeID); err != nil {
				return err
			}

			line, err = s.addLine(ctx, tx, lineSpec{
				orderID:     orderID,
				product:     product,
				storeID:     storeID,
				email:       email,
				quantity:    req.Quantity,
				disquantity: req.Disquantity,
			})
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// addLine merges into the open line of the same order, product, store and purchaser,
// or inserts a new one with the product's current price.
func (s *Service) addLine(ctx context.Context, tx *gorm.DB, want lineSpec) (*domain.Line, error) {
	existing, err := s.repo.LockOpenLine(ctx, tx, domain.OpenLineKey{
		OrderID:   want.orderID,
		ProductID: want.product.ID,
		StoreID:   want.storeID,
		Email:     want.email,
	})
	if err != nil {
		return nil, db.Infra(err)
	}
	if existing != nil {
		return s.mergeLine(ctx, tx, existing, want)
	}

	line := &domain.Line{
		OrderID:      want.orderID,
		ProductID:    want.product.ID,
		ProductName:  want.product.Name,
		Quantity:     want.quantity,
		Disquantity:  want.disquantity,
		Email:        want.email,
		StoreID:      want.storeID,
		PricePerUnit: want.product.Price,
		OrderDate:    s.clock.Now(),
	}
	if err := s.repo.InsertLine(ctx, tx, line); err != nil {
		return nil, db.Infra(err)
	}
	if _, err := s.inventory.Reserve(ctx, tx, inventorydomain.Change{
		ProductID: want.product.ID,
		Quantity:  want.quantity,
		Reference: inventoryservice.LineReference(line.ID),
	}); err != nil {
		return nil, err
	}
	if err := s.refreshBin(ctx, tx, want.product.CategoryID, line.StoreID, line.ID, &bindomain.LineState{Disquantity: line.Disquantity}); err != nil {
		return nil, err
	}

	s.metrics.RecordOrderLine(ctx, line.StoreID, "add")
	return line, nil
}

func (s *Service) mergeLine(ctx context.Context, tx *gorm.DB, existing *domain.Line, want lineSpec) (*domain.Line, error) {
	if _, err := s.inventory.Reserve(ctx, tx, inventorydomain.Change{
		ProductID: want.product.ID,
		Quantity:  want.quantity,
		Reference: inventoryservice.LineReference(existing.ID),
		Metadata:  map[string]any{"merge": true},
	}); err != nil {
		if inventoryservice.IsStockError(err) {
			return nil, &domain.DuplicateLineError{LineID: existing.ID, Cause: err}
		}
		return nil, err
	}

	existing.Quantity += want.quantity
	existing.Disquantity += want.disquantity
	if err := s.repo.UpdateLine(ctx, tx, existing); err != nil {
		return nil, db.Infra(err)
	}
	if err := s.refreshBin(ctx, tx, want.product.CategoryID, existing.StoreID, existing.ID, &bindomain.LineState{Disquantity: existing.Disquantity}); err != nil {
		return nil, err
	}

	s.metrics.RecordOrderLine(ctx, existing.StoreID, "merge")
	return existing, nil
}

func (s *Service) EditLine(ctx context.Context, actor access.Actor, req domain.EditLineRequest) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if err := validateQuantities(req.Quantity, req.Disquantity); err != nil {
		return nil, err
	}

	var line *domain.Line
	err := s.observe("order.edit_line", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			current, err := s.lockVisibleLine(ctx, tx, actor, access.ResourceOrder, req.LineID)
			if err != nil {
				return err
			}
			if err := access.DecideOwned(actor, lineAuthority(actor, access.ActionUpdate), access.ActionUpdate, &current.StoreID, current.Email); err != nil {
				return err
			}

			oldProduct, err := s.lineProduct(ctx, tx, current.ProductID)
			if err != nil {
				return err
			}
			newProduct := oldProduct
			if req.ProductID != 0 && req.ProductID != current.ProductID {
				newProduct, err = s.visibleProduct(ctx, tx, actor, req.ProductID)
				if err != nil {
					return err
				}
				if newProduct.StoreID != nil && *newProduct.StoreID != current.StoreID {
					return domain.ErrProductNotFound
				}
			}

			if err := s.applyEdit(ctx, tx, current, oldProduct, newProduct, req.Quantity, req.Disquantity); err != nil {
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

// applyEdit moves stock for a line edit and rewrites the line. A product swap
// releases the old product in full and reserves the new quantity; a failed reserve
// aborts the enclosing transaction, which also undoes the release.
func (s *Service) applyEdit(ctx context.Context, tx *gorm.DB, line *domain.Line, oldProduct, newProduct *productdomain.Product, quantity, disquantity int64) error {
	ref := inventoryservice.LineReference(line.ID)

	if newProduct.ID != oldProduct.ID {
		if _, err := s.inventory.Release(ctx, tx, inventorydomain.Change{
			ProductID: oldProduct.ID,
			Quantity:  line.Quantity,
			Reference: ref,
			Metadata:  map[string]any{"swap_to": newProduct.ID},
		}); err != nil {
			return err
		}
		if _, err := s.inventory.Reserve(ctx, tx, inventorydomain.Change{
			ProductID: newProduct.ID,
			Quantity:  quantity,
			Reference: ref,
			Metadata:  map[string]any{"swap_from": oldProduct.ID},
		}); err != nil {
			return err
		}
		line.ProductID = newProduct.ID
		line.ProductName = newProduct.Name
		line.PricePerUnit = newProduct.Price
	} else if delta := line.Quantity - quantity; delta != 0 {
		if _, err := s.inventory.Adjust(ctx, tx, inventorydomain.Change{
			ProductID: oldProduct.ID,
			Quantity:  delta,
			Reference: ref,
		}); err != nil {
			return err
		}
	}

	line.Quantity = quantity
	line.Disquantity = disquantity
	if err := s.repo.UpdateLine(ctx, tx, line); err != nil {
		return db.Infra(err)
	}

	if oldProduct.CategoryID != newProduct.CategoryID {
		if err := s.refreshBin(ctx, tx, oldProduct.CategoryID, line.StoreID, line.ID, nil); err != nil {
			return err
		}
	}
	if err := s.refreshBin(ctx, tx, newProduct.CategoryID, line.StoreID, line.ID, &bindomain.LineState{Disquantity: line.Disquantity}); err != nil {
		return err
	}

	s.metrics.RecordOrderLine(ctx, line.StoreID, "edit")
	return nil
}

func (s *Service) DeleteLine(ctx context.Context, actor access.Actor, lineID int64) error {
	if !actor.Valid() {
		return access.ErrInvalidActor
	}

	var deleted *domain.Line
	err := s.observe("order.delete_line", func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			line, err := s.lockVisibleLine(ctx, tx, actor, access.ResourceOrder, lineID)
			if err != nil {
				return err
			}
			if err := access.DecideOwned(actor, lineAuthority(actor, access.ActionDelete), access.ActionDelete, &line.StoreID, line.Email); err != nil {
				return err
			}
			if err := s.removeLine(ctx, tx, line); err != nil {
				return err
			}
			deleted = line
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.audit(ctx, deleted.StoreID, "order_line.delete", deleted.ID, map[string]any{
		"order_id":   deleted.OrderID,
		"product_id": deleted.ProductID,
		"quantity":   deleted.Quantity,
	})
	return nil
}

// removeLine gives the line's units back to the product, drops the row and clears
// the bin if this was its last disposing line.
func (s *Service) removeLine(ctx context.Context, tx *gorm.DB, line *domain.Line) error {
	product, err := s.lineProduct(ctx, tx, line.ProductID)
	if err != nil {
		return err
	}
	if _, err := s.inventory.Release(ctx, tx, inventorydomain.Change{
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Reference: inventoryservice.LineReference(line.ID),
		Metadata:  map[string]any{"deleted": true},
	}); err != nil {
		return err
	}
	if err := s.repo.DeleteLine(ctx, tx, line.ID); err != nil {
		return db.Infra(err)
	}
	if err := s.refreshBin(ctx, tx, product.CategoryID, line.StoreID, line.ID, nil); err != nil {
		return err
	}

	s.metrics.RecordOrderLine(ctx, line.StoreID, "delete")
	return nil
}

func (s *Service) GetLine(ctx context.Context, actor access.Actor, lineID int64) (*domain.Line, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if lineID <= 0 {
		return nil, domain.ErrLineNotFound
	}

	line, err := s.repo.FindLine(ctx, s.db, lineID, access.ScopeFor(actor, access.ResourceOrder))
	if err != nil {
		return nil, db.Infra(err)
	}
	if line == nil {
		return nil, domain.ErrLineNotFound
	}
	return line, nil
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !actor.Valid() {
		return domain.ListResponse{}, access.ErrInvalidActor
	}
	if !access.Can(actor.Role, access.ResourceOrder, access.ActionRead) {
		return domain.ListResponse{}, access.ErrPermissionDenied
	}

	page := req.Pagination.Normalize()
	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Scope:          access.ScopeFor(actor, access.ResourceOrder).Narrow(req.StoreID),
		OrderID:        req.OrderID,
		ReceiptBarcode: req.ReceiptBarcode,
		Search:         req.Search,
		Page:           page,
	})
	if err != nil {
		return domain.ListResponse{}, db.Infra(err)
	}

	resp := domain.ListResponse{
		Lines:    derefLines(items),
		PageInfo: paginationInfo(page, total),
	}
	return resp, nil
}

// lockVisibleLine locks a line and hides it unless the actor's read scope covers it,
// so out-of-scope rows look exactly like missing ones.
// lineAuthority is the resource a line change is decided on. Members without order
// write rights change their own receipt lines through their bin rights.
func lineAuthority(actor access.Actor, action access.Action) access.Resource {
	if access.Can(actor.Role, access.ResourceOrder, action) {
		return access.ResourceOrder
	}
	return access.ResourceBin
}

func (s *Service) lockVisibleLine(ctx context.Context, tx *gorm.DB, actor access.Actor, resource access.Resource, lineID int64) (*domain.Line, error) {
	if lineID <= 0 {
		return nil, domain.ErrLineNotFound
	}
	line, err := s.repo.LockLine(ctx, tx, lineID)
	if err != nil {
		return nil, db.Infra(err)
	}
	if line == nil {
		return nil, domain.ErrLineNotFound
	}
	storeID := line.StoreID
	if !access.ScopeFor(actor, resource).Allows(&storeID, line.Email) {
		return nil, domain.ErrLineNotFound
	}
	return line, nil
}

// visibleProduct loads a product the actor can see. Invisible products are reported
// as missing.
func (s *Service) visibleProduct(ctx context.Context, tx *gorm.DB, actor access.Actor, productID int64) (*productdomain.Product, error) {
	if productID <= 0 {
		return nil, domain.ErrProductNotFound
	}
	product, err := s.repo.FindProduct(ctx, tx, productID)
	if err != nil {
		return nil, db.Infra(err)
	}
	if product == nil || !access.ScopeFor(actor, access.ResourceProduct).Allows(product.StoreID, "") {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) lineProduct(ctx context.Context, tx *gorm.DB, productID int64) (*productdomain.Product, error) {
	product, err := s.repo.FindProduct(ctx, tx, productID)
	if err != nil {
		return nil, db.Infra(err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (s *Service) refreshBin(ctx context.Context, tx *gorm.DB, categoryID, storeID, lineID int64, line *bindomain.LineState) error {
	_, err := s.bins.Refresh(ctx, tx, bindomain.Key{CategoryID: categoryID, StoreID: storeID}, lineID, line)
	return err
}

func (s *Service) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.consistency.ObserveOperation(op, time.Since(start), err)
	return err
}

func (s *Service) audit(ctx context.Context, storeID int64, action string, lineID int64, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	store := storeID
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    &store,
		Action:     action,
		TargetType: "order_line",
		TargetID:   formatID(lineID),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// resolveStore picks the store a new line belongs to: the product's own store, then
// the requested store, then the actor's store.
func resolveStore(actor access.Actor, product *productdomain.Product, requested *int64) (int64, error) {
	if product.StoreID != nil {
		if requested != nil && *requested != *product.StoreID {
			return 0, domain.ErrProductNotFound
		}
		return *product.StoreID, nil
	}
	if requested != nil && *requested > 0 {
		return *requested, nil
	}
	if actor.StoreID != nil {
		return *actor.StoreID, nil
	}
	return 0, domain.ErrStoreRequired
}

func validateQuantities(quantity, disquantity int64) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	if disquantity < 0 || disquantity > quantity {
		return domain.ErrInvalidDisquantity
	}
	return nil
}

func normalizeEmail(value string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(value))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

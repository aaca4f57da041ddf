package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"github.com/smallbiznis/trashforcoin/internal/barcode"
	bindomain "github.com/smallbiznis/trashforcoin/internal/bin/domain"
	categorydomain "github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/config"
	inventorydomain "github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	"github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Repo       domain.Repository
	Inventory  inventorydomain.Service
	Bins       bindomain.Tracker
	Operations *config.OperationsConfigHolder
	AuditSvc   auditdomain.Service `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       domain.Repository
	inventory  inventorydomain.Service
	bins       bindomain.Tracker
	operations *config.OperationsConfigHolder
	auditSvc   auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("product.service"),
		clock:      p.Clock,
		repo:       p.Repo,
		inventory:  p.Inventory,
		bins:       p.Bins,
		operations: p.Operations,
		auditSvc:   p.AuditSvc,
	}
}

// Create inserts the catalog row with no stock and books the opening stock through
// the ledger.
func (s *Service) Create(ctx context.Context, actor access.Actor, req domain.CreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	if req.StockQuantity < 0 {
		return nil, domain.ErrInvalidStock
	}
	storeID := req.StoreID
	if storeID == nil && actor.Bound() {
		value := *actor.StoreID
		storeID = &value
	}
	if err := access.Decide(actor, access.ResourceProduct, access.ActionCreate, storeID); err != nil {
		return nil, err
	}

	var product *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.category(ctx, tx, req.CategoryID, storeID); err != nil {
			return err
		}

		code := strings.TrimSpace(req.CatalogBarcode)
		if code != "" {
			if err := s.inventory.EnsureUniqueBarcode(ctx, tx, storeID, code, 0); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		product = &domain.Product{
			Name:           name,
			Price:          req.Price.Round(2),
			CategoryID:     req.CategoryID,
			CatalogBarcode: code,
			StoreID:        storeID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(ctx, tx, product); err != nil {
			return db.Infra(err)
		}

		if code == "" {
			generated, err := barcode.EncodeID(product.ID)
			if err != nil {
				return err
			}
			if err := s.inventory.EnsureUniqueBarcode(ctx, tx, storeID, generated, product.ID); err != nil {
				return err
			}
			product.CatalogBarcode = generated
			if err := s.repo.UpdateCatalog(ctx, tx, product); err != nil {
				return db.Infra(err)
			}
		}

		if req.StockQuantity > 0 {
			level, err := s.inventory.Set(ctx, tx, product.ID, req.StockQuantity, productReference(product.ID))
			if err != nil {
				return err
			}
			product.StockQuantity = level.After
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, product, "product.create", nil)
	return product, nil
}

func (s *Service) Update(ctx context.Context, actor access.Actor, req domain.UpdateRequest) (*domain.Product, error) {
	var product *domain.Product
	changes := map[string]any{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.visible(ctx, tx, actor, req.ID)
		if err != nil {
			return err
		}
		if err := access.Decide(actor, access.ResourceProduct, access.ActionUpdate, current.StoreID); err != nil {
			return err
		}

		oldCategory := current.CategoryID
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			current.Name = name
			changes["name"] = name
		}
		if req.Price != nil {
			if req.Price.IsNegative() {
				return domain.ErrInvalidPrice
			}
			current.Price = req.Price.Round(2)
			changes["price"] = current.Price.StringFixed(2)
		}
		if req.CategoryID != nil && *req.CategoryID != current.CategoryID {
			if _, err := s.category(ctx, tx, *req.CategoryID, current.StoreID); err != nil {
				return err
			}
			current.CategoryID = *req.CategoryID
			changes["category_id"] = current.CategoryID
		}
		if req.CatalogBarcode != nil {
			code := strings.TrimSpace(*req.CatalogBarcode)
			if code != current.CatalogBarcode {
				if err := s.inventory.EnsureUniqueBarcode(ctx, tx, current.StoreID, code, current.ID); err != nil {
					return err
				}
				current.CatalogBarcode = code
				changes["catalog_barcode"] = code
			}
		}

		current.UpdatedAt = s.clock.Now()
		if err := s.repo.UpdateCatalog(ctx, tx, current); err != nil {
			return db.Infra(err)
		}

		if req.StockQuantity != nil {
			if *req.StockQuantity < 0 {
				return domain.ErrInvalidStock
			}
			level, err := s.inventory.Set(ctx, tx, current.ID, *req.StockQuantity, productReference(current.ID))
			if err != nil {
				return err
			}
			current.StockQuantity = level.After
			changes["stock_quantity"] = level.After
		}

		if oldCategory != current.CategoryID {
			if err := s.refreshBins(ctx, tx, current.ID, oldCategory, current.CategoryID); err != nil {
				return err
			}
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, product, "product.update", changes)
	return product, nil
}

// Delete refuses products that order lines still point at.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	var deleted *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.visible(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := access.Decide(actor, access.ResourceProduct, access.ActionDelete, product.StoreID); err != nil {
			return err
		}
		count, err := s.repo.CountOrderLines(ctx, tx, product.ID)
		if err != nil {
			return db.Infra(err)
		}
		if count > 0 {
			return domain.ErrInUse
		}
		if err := s.repo.Delete(ctx, tx, product.ID); err != nil {
			return db.Infra(err)
		}
		deleted = product
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, deleted, "product.delete", nil)
	return nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*domain.Product, error) {
	return s.visible(ctx, s.db, actor, id)
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) (domain.ListResponse, error) {
	if !actor.Valid() {
		return domain.ListResponse{}, access.ErrInvalidActor
	}
	scope := access.ScopeFor(actor, access.ResourceProduct)
	if req.StoreID != nil {
		narrowed := scope.Narrow(req.StoreID)
		if !narrowed.None {
			narrowed.IncludeGlobal = true
		}
		scope = narrowed
	}

	filter := domain.ListFilter{
		Scope:      scope,
		CategoryID: req.CategoryID,
		Search:     req.Search,
		Page:       req.Pagination.Normalize(),
	}
	if req.LowStock {
		threshold := int64(s.operations.Get().LowStockThreshold)
		filter.MaxStock = &threshold
	}

	items, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, db.Infra(err)
	}
	if items == nil {
		items = []domain.Product{}
	}
	return domain.ListResponse{
		Products: items,
		PageInfo: pagination.BuildPageInfo(filter.Page, total),
	}, nil
}

// FindByBarcode resolves a scanned code against catalog barcodes first and the
// product id codec second.
func (s *Service) FindByBarcode(ctx context.Context, actor access.Actor, code string) (*domain.Product, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	code = strings.TrimSpace(code)
	if _, err := barcode.Parse(code); err != nil {
		return nil, inventorydomain.ErrInvalidBarcode
	}

	product, err := s.repo.FindByBarcode(ctx, s.db, access.ScopeFor(actor, access.ResourceProduct), code)
	if err != nil {
		return nil, db.Infra(err)
	}
	if product != nil {
		return product, nil
	}

	id, err := barcode.DecodeID(code)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return s.visible(ctx, s.db, actor, id)
}

func (s *Service) Barcode(ctx context.Context, actor access.Actor, id int64) (domain.BarcodeResponse, error) {
	product, err := s.visible(ctx, s.db, actor, id)
	if err != nil {
		return domain.BarcodeResponse{}, err
	}
	code, err := barcode.EncodeID(product.ID)
	if err != nil {
		return domain.BarcodeResponse{}, err
	}
	return domain.BarcodeResponse{
		ProductID:      product.ID,
		Barcode:        code,
		CatalogBarcode: product.CatalogBarcode,
	}, nil
}

func (s *Service) visible(ctx context.Context, conn *gorm.DB, actor access.Actor, id int64) (*domain.Product, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	product, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if product == nil || !access.ScopeFor(actor, access.ResourceProduct).Allows(product.StoreID, "") {
		return nil, domain.ErrNotFound
	}
	return product, nil
}

// category checks that id names a category a product of storeID may join: a shared
// category or one of the same store.
func (s *Service) category(ctx context.Context, tx *gorm.DB, id int64, storeID *int64) (*categorydomain.Category, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidCategory
	}
	category, err := s.repo.FindCategory(ctx, tx, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if category == nil {
		return nil, domain.ErrInvalidCategory
	}
	if category.StoreID != nil && (storeID == nil || *category.StoreID != *storeID) {
		return nil, domain.ErrInvalidCategory
	}
	return category, nil
}

// refreshBins recounts the bins a product left and joined in every store holding
// its order lines.
func (s *Service) refreshBins(ctx context.Context, tx *gorm.DB, productID, from, to int64) error {
	stores, err := s.repo.LineStores(ctx, tx, productID)
	if err != nil {
		return db.Infra(err)
	}
	for _, storeID := range stores {
		for _, categoryID := range []int64{from, to} {
			key := bindomain.Key{CategoryID: categoryID, StoreID: storeID}
			if _, err := s.bins.Refresh(ctx, tx, key, 0, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) audit(ctx context.Context, product *domain.Product, action string, changes map[string]any) {
	if s.auditSvc == nil {
		return
	}
	metadata := map[string]any{"name": product.Name}
	if len(changes) > 0 {
		metadata["changes"] = changes
	}
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    product.StoreID,
		Action:     action,
		TargetType: "product",
		TargetID:   strconv.FormatInt(product.ID, 10),
		Metadata:   metadata,
	}); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func productReference(id int64) inventorydomain.Reference {
	return inventorydomain.Reference{Type: "product", ID: strconv.FormatInt(id, 10)}
}

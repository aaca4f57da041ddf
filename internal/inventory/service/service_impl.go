package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/barcode"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	"github.com/smallbiznis/trashforcoin/internal/observability/metrics"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"github.com/smallbiznis/trashforcoin/pkg/db/pagination"
	"github.com/smallbiznis/trashforcoin/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	Metrics     *metrics.Metrics            `optional:"true"`
	Consistency *metrics.ConsistencyMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	metrics     *metrics.Metrics
	consistency *metrics.ConsistencyMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("inventory.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		metrics:     p.Metrics,
		consistency: metrics.ConsistencyOrDefault(p.Consistency),
	}
}

func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, change domain.Change) (domain.StockLevel, error) {
	if change.Quantity <= 0 {
		return domain.StockLevel{}, domain.ErrInvalidQuantity
	}
	return s.apply(ctx, tx, domain.MovementReserve, change.ProductID, -change.Quantity, change.Reference, change.Metadata)
}

func (s *Service) Release(ctx context.Context, tx *gorm.DB, change domain.Change) (domain.StockLevel, error) {
	if change.Quantity <= 0 {
		return domain.StockLevel{}, domain.ErrInvalidQuantity
	}
	return s.apply(ctx, tx, domain.MovementRelease, change.ProductID, change.Quantity, change.Reference, change.Metadata)
}

// Adjust moves stock by a signed delta: negative takes units out, positive puts them back.
func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, change domain.Change) (domain.StockLevel, error) {
	return s.apply(ctx, tx, domain.MovementAdjust, change.ProductID, change.Quantity, change.Reference, change.Metadata)
}

// Set overwrites the stock of a product, as a catalog edit does.
func (s *Service) Set(ctx context.Context, tx *gorm.DB, productID, stock int64, ref domain.Reference) (domain.StockLevel, error) {
	if stock < 0 {
		return domain.StockLevel{}, domain.ErrNegativeStock
	}

	product, err := s.lock(ctx, tx, productID)
	if err != nil {
		return domain.StockLevel{}, err
	}
	return s.write(ctx, tx, domain.MovementSet, product.ID, product.StoreID, product.StockQuantity, stock, ref, nil)
}

func (s *Service) EnsureUniqueBarcode(ctx context.Context, tx *gorm.DB, storeID *int64, code string, excludeProductID int64) error {
	code = strings.TrimSpace(code)
	if len(code) != barcode.Digits {
		return domain.ErrInvalidBarcode
	}
	if _, err := barcode.Parse(code); err != nil {
		return domain.ErrInvalidBarcode
	}

	count, err := s.repo.CountBarcode(ctx, tx, storeID, code, excludeProductID)
	if err != nil {
		return db.Infra(err)
	}
	if count > 0 {
		return domain.ErrDuplicateBarcode
	}
	return nil
}

func (s *Service) Movements(ctx context.Context, actor access.Actor, req domain.ListMovementsRequest) (domain.ListMovementsResponse, error) {
	if !actor.Valid() {
		return domain.ListMovementsResponse{}, access.ErrInvalidActor
	}
	if !actor.Role.Privileged() && actor.Role != access.RoleViewer {
		return domain.ListMovementsResponse{}, access.ErrPermissionDenied
	}

	var beforeID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListMovementsResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(cursor.ID))
		if err != nil || id == 0 {
			return domain.ListMovementsResponse{}, domain.ErrInvalidPageToken
		}
		beforeID = id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	if pageSize > pagination.MaxPageSize {
		pageSize = pagination.MaxPageSize
	}

	items, err := s.repo.ListMovements(ctx, s.db, domain.MovementFilter{
		Scope:     access.ScopeFor(actor, access.ResourceProduct),
		ProductID: req.ProductID,
		BeforeID:  beforeID,
		Limit:     pageSize,
	})
	if err != nil {
		return domain.ListMovementsResponse{}, db.Infra(err)
	}

	resp := domain.ListMovementsResponse{}
	if len(items) > pageSize {
		items = items[:pageSize]
		if token, err := pagination.EncodeCursor(pagination.Cursor{ID: items[len(items)-1].ID.String()}); err == nil {
			resp.NextPageToken = token
		}
	}
	resp.Movements = make([]domain.Movement, 0, len(items))
	for _, item := range items {
		resp.Movements = append(resp.Movements, *item)
	}
	return resp, nil
}

func (s *Service) apply(ctx context.Context, tx *gorm.DB, kind domain.MovementKind, productID, delta int64, ref domain.Reference, metadata map[string]any) (domain.StockLevel, error) {
	product, err := s.lock(ctx, tx, productID)
	if err != nil {
		return domain.StockLevel{}, err
	}

	next := product.StockQuantity + delta
	if next < 0 {
		s.metrics.RecordStockRejected(ctx, string(kind))
		return domain.StockLevel{}, &domain.InsufficientStockError{
			ProductID: product.ID,
			Available: product.StockQuantity,
			Requested: -delta,
		}
	}
	return s.write(ctx, tx, kind, product.ID, product.StoreID, product.StockQuantity, next, ref, metadata)
}

func (s *Service) lock(ctx context.Context, tx *gorm.DB, productID int64) (*productLock, error) {
	if productID <= 0 {
		return nil, domain.ErrProductNotFound
	}

	start := time.Now()
	product, err := s.repo.LockProduct(ctx, tx, productID)
	s.consistency.ObserveDBLockWait(metrics.LockResourceProductStock, time.Since(start))
	if err != nil {
		return nil, db.Infra(err)
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return &productLock{ID: product.ID, StoreID: product.StoreID, StockQuantity: product.StockQuantity}, nil
}

type productLock struct {
	ID            int64
	StoreID       *int64
	StockQuantity int64
}

func (s *Service) write(ctx context.Context, tx *gorm.DB, kind domain.MovementKind, productID int64, storeID *int64, before, after int64, ref domain.Reference, metadata map[string]any) (domain.StockLevel, error) {
	level := domain.StockLevel{ProductID: productID, StoreID: storeID, Before: before, After: after}
	if before == after {
		return level, nil
	}

	swapped, err := s.repo.CompareAndSetStock(ctx, tx, productID, before, after)
	if err != nil {
		return domain.StockLevel{}, db.Infra(err)
	}
	if !swapped {
		return domain.StockLevel{}, domain.ErrConcurrentUpdate
	}

	_, correlationID := correlation.EnsureCorrelationID(ctx)
	movement := &domain.Movement{
		ID:            s.genID.Generate(),
		ProductID:     productID,
		StoreID:       storeID,
		Kind:          kind,
		QuantityDelta: after - before,
		StockBefore:   before,
		StockAfter:    after,
		ReferenceType: ref.Type,
		ReferenceID:   ref.ID,
		CorrelationID: correlationID,
		Metadata:      datatypes.JSONMap(metadata),
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.InsertMovement(ctx, tx, movement); err != nil {
		return domain.StockLevel{}, db.Infra(err)
	}

	s.metrics.RecordStockMovement(ctx, string(kind))
	s.log.Debug("stock moved",
		zap.Int64("product_id", productID),
		zap.String("kind", string(kind)),
		zap.Int64("before", before),
		zap.Int64("after", after),
		zap.String("reference", ref.Type+":"+ref.ID),
	)
	return level, nil
}

// IsStockError reports whether err is a stock rule violation rather than an infrastructure fault.
func IsStockError(err error) bool {
	return errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNegativeStock) ||
		errors.Is(err, domain.ErrInvalidQuantity)
}

// LineReference names an order line as the cause of a movement.
func LineReference(lineID int64) domain.Reference {
	return domain.Reference{Type: "order_line", ID: strconv.FormatInt(lineID, 10)}
}

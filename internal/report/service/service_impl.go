package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"github.com/smallbiznis/trashforcoin/internal/report/domain"
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
	Repo       domain.Repository
	Operations *config.OperationsConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	operations *config.OperationsConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		repo:       p.Repo,
		operations: p.Operations,
	}
}

func (s *Service) lowStock() int64 {
	return int64(s.operations.Get().LowStockThreshold)
}

// scope is the read scope of resource, optionally narrowed to one store. Shared
// catalog rows stay visible inside a store filter.
func scope(actor access.Actor, resource access.Resource, storeID *int64) access.Scope {
	sc := access.ScopeFor(actor, resource)
	if storeID == nil {
		return sc
	}
	narrowed := sc.Narrow(storeID)
	if !narrowed.None && (resource == access.ResourceCategory || resource == access.ResourceProduct) {
		narrowed.IncludeGlobal = true
	}
	return narrowed
}

func (s *Service) Dashboard(ctx context.Context, actor access.Actor, storeID *int64) (domain.Dashboard, error) {
	if err := access.Decide(actor, access.ResourceReport, access.ActionRead, storeID); err != nil {
		return domain.Dashboard{}, err
	}

	out := domain.Dashboard{StoreID: storeID}
	var err error
	if out.Stores, err = s.repo.CountStores(ctx, s.db, scope(actor, access.ResourceStore, storeID)); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	if out.Users, err = s.repo.CountUsers(ctx, s.db, scope(actor, access.ResourceUser, storeID)); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	if out.Categories, err = s.repo.CountCategories(ctx, s.db, scope(actor, access.ResourceCategory, storeID)); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	out.Products, out.LowStock, out.StockUnits, err = s.repo.CountProducts(ctx, s.db, scope(actor, access.ResourceProduct, storeID), s.lowStock())
	if err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	orders := scope(actor, access.ResourceOrder, storeID)
	if out.Orders, err = s.repo.CountOrders(ctx, s.db, orders); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	if out.OpenCartLines, err = s.repo.CountOpenLines(ctx, s.db, orders); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	if out.FlaggedBins, err = s.repo.CountFlaggedBins(ctx, s.db, scope(actor, access.ResourceBin, storeID)); err != nil {
		return domain.Dashboard{}, db.Infra(err)
	}
	return out, nil
}

// Orders returns the joined order line projection consumed by CSV and PDF exports.
func (s *Service) Orders(ctx context.Context, actor access.Actor, req domain.OrdersRequest) (domain.OrdersResponse, error) {
	if err := access.Decide(actor, access.ResourceReport, access.ActionRead, req.StoreID); err != nil {
		return domain.OrdersResponse{}, err
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return domain.OrdersResponse{}, domain.ErrInvalidRange
	}

	filter := domain.OrderFilter{
		Scope:          scope(actor, access.ResourceOrder, req.StoreID),
		ReceiptBarcode: req.ReceiptBarcode,
		Search:         req.Search,
		From:           req.From,
		CompletedOnly:  req.CompletedOnly,
		Page:           req.Pagination.Normalize(),
	}
	if req.To != nil {
		// The upper bound is a whole day.
		end := req.To.Add(24 * time.Hour)
		filter.To = &end
	}

	rows, total, err := s.repo.ListOrders(ctx, s.db, filter)
	if err != nil {
		return domain.OrdersResponse{}, db.Infra(err)
	}
	if rows == nil {
		rows = []domain.OrderRow{}
	}

	resp := domain.OrdersResponse{
		Rows:       rows,
		TotalPrice: decimal.Zero,
		PageInfo:   pagination.BuildPageInfo(filter.Page, total),
	}
	for _, row := range rows {
		resp.TotalQuantity += row.Quantity
		resp.TotalPrice = resp.TotalPrice.Add(row.Subtotal)
	}
	return resp, nil
}

// StoreSnapshots is the unscoped per-store state read by the metrics pusher.
func (s *Service) StoreSnapshots(ctx context.Context) ([]domain.StoreSnapshot, error) {
	rows, err := s.repo.StoreSnapshots(ctx, s.db, s.lowStock())
	if err != nil {
		return nil, db.Infra(err)
	}
	return rows, nil
}

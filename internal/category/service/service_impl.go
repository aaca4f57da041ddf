package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"github.com/smallbiznis/trashforcoin/internal/category/domain"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     domain.Repository
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("category.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, actor access.Actor, req domain.CreateRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	storeID := req.StoreID
	if storeID == nil && actor.Bound() {
		storeID = copyStore(actor.StoreID)
	}
	if err := access.Decide(actor, access.ResourceCategory, access.ActionCreate, storeID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	category := &domain.Category{Name: name, StoreID: storeID, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Create(ctx, s.db, category); err != nil {
		return nil, db.Infra(err)
	}

	s.audit(ctx, category, "category.create")
	return category, nil
}

func (s *Service) Rename(ctx context.Context, actor access.Actor, req domain.RenameRequest) (*domain.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	category, err := s.visible(ctx, s.db, actor, req.ID)
	if err != nil {
		return nil, err
	}
	if err := access.Decide(actor, access.ResourceCategory, access.ActionUpdate, category.StoreID); err != nil {
		return nil, err
	}

	category.Name = name
	category.UpdatedAt = s.clock.Now()
	if err := s.repo.Rename(ctx, s.db, category); err != nil {
		return nil, db.Infra(err)
	}

	s.audit(ctx, category, "category.rename")
	return category, nil
}

// Delete refuses categories that still hold products; their bins go with them.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id int64) error {
	var deleted *domain.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := s.visible(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if err := access.Decide(actor, access.ResourceCategory, access.ActionDelete, category.StoreID); err != nil {
			return err
		}
		count, err := s.repo.CountProducts(ctx, tx, category.ID)
		if err != nil {
			return db.Infra(err)
		}
		if count > 0 {
			return domain.ErrInUse
		}
		if err := s.repo.Delete(ctx, tx, category.ID); err != nil {
			return db.Infra(err)
		}
		deleted = category
		return nil
	})
	if err != nil {
		return err
	}

	s.audit(ctx, deleted, "category.delete")
	return nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*domain.Category, error) {
	return s.visible(ctx, s.db, actor, id)
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) ([]domain.Category, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	scope := access.ScopeFor(actor, access.ResourceCategory)
	if req.StoreID != nil {
		narrowed := scope.Narrow(req.StoreID)
		if !narrowed.None {
			narrowed.IncludeGlobal = scope.IncludeGlobal || scope.All
		}
		scope = narrowed
	}
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{Scope: scope, Search: req.Search})
	if err != nil {
		return nil, db.Infra(err)
	}
	return items, nil
}

func (s *Service) visible(ctx context.Context, conn *gorm.DB, actor access.Actor, id int64) (*domain.Category, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	category, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if category == nil || !access.ScopeFor(actor, access.ResourceCategory).Allows(category.StoreID, "") {
		return nil, domain.ErrNotFound
	}
	return category, nil
}

func (s *Service) audit(ctx context.Context, category *domain.Category, action string) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    category.StoreID,
		Action:     action,
		TargetType: "category",
		TargetID:   strconv.FormatInt(category.ID, 10),
		Metadata:   map[string]any{"name": category.Name},
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func copyStore(store *int64) *int64 {
	if store == nil {
		return nil
	}
	value := *store
	return &value
}

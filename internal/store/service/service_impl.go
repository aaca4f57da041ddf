package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/store/domain"
	"github.com/smallbiznis/trashforcoin/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

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
		log:      p.Log.Named("store.service"),
		clock:    p.Clock,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, actor access.Actor, req domain.CreateRequest) (*domain.Store, error) {
	if err := access.Decide(actor, access.ResourceStore, access.ActionCreate, nil); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	var store *domain.Store
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		storeSlug, err := s.uniqueSlug(ctx, tx, name)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		store = &domain.Store{Name: name, Slug: storeSlug, CreatedAt: now, UpdatedAt: now}
		if err := s.repo.Create(ctx, tx, store); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrSlugTaken
			}
			return db.Infra(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, store, "store.create")
	return store, nil
}

func (s *Service) Rename(ctx context.Context, actor access.Actor, req domain.RenameRequest) (*domain.Store, error) {
	if req.ID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if err := access.Decide(actor, access.ResourceStore, access.ActionUpdate, &req.ID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	store, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, db.Infra(err)
	}
	if store == nil {
		return nil, domain.ErrNotFound
	}

	store.Name = name
	store.UpdatedAt = s.clock.Now()
	if err := s.repo.Rename(ctx, s.db, store); err != nil {
		return nil, db.Infra(err)
	}

	s.audit(ctx, store, "store.rename")
	return store, nil
}

func (s *Service) Get(ctx context.Context, actor access.Actor, id int64) (*domain.Store, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	store, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, db.Infra(err)
	}
	if store == nil || !access.ScopeFor(actor, access.ResourceStore).Allows(&store.ID, "") {
		return nil, domain.ErrNotFound
	}
	return store, nil
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) ([]domain.Store, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	items, err := s.repo.List(ctx, s.db, access.ScopeFor(actor, access.ResourceStore), req.Name)
	if err != nil {
		return nil, db.Infra(err)
	}
	return items, nil
}

func (s *Service) uniqueSlug(ctx context.Context, tx *gorm.DB, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "store"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		count, err := s.repo.CountSlug(ctx, tx, candidate)
		if err != nil {
			return "", db.Infra(err)
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", domain.ErrSlugTaken
}

func (s *Service) audit(ctx context.Context, store *domain.Store, action string) {
	if s.auditSvc == nil {
		return
	}
	storeID := store.ID
	if err := s.auditSvc.AuditLog(ctx, auditdomain.Entry{
		StoreID:    &storeID,
		Action:     action,
		TargetType: "store",
		TargetID:   fmt.Sprint(store.ID),
		Metadata:   map[string]any{"name": store.Name, "slug": store.Slug},
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

package service

import (
	"context"
	"time"

	"github.com/smallbiznis/trashforcoin/internal/access"
	"github.com/smallbiznis/trashforcoin/internal/bin/domain"
	"github.com/smallbiznis/trashforcoin/internal/clock"
	"github.com/smallbiznis/trashforcoin/internal/observability/metrics"
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
	Metrics     *metrics.Metrics            `optional:"true"`
	Consistency *metrics.ConsistencyMetrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	repo        domain.Repository
	metrics     *metrics.Metrics
	consistency *metrics.ConsistencyMetrics
}

func New(p Params) domain.Tracker {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("bin.service"),
		clock:       p.Clock,
		repo:        p.Repo,
		metrics:     p.Metrics,
		consistency: metrics.ConsistencyOrDefault(p.Consistency),
	}
}

// Refresh recomputes one bin after the line lineID was written. line is the line's
// post-mutation state in this key, nil when it was deleted or moved to another key.
// A zero lineID with a nil line recounts the key from scratch.
func (s *Service) Refresh(ctx context.Context, tx *gorm.DB, key domain.Key, lineID int64, line *domain.LineState) (domain.State, error) {
	if key.CategoryID <= 0 || key.StoreID <= 0 {
		return domain.StateClear, nil
	}

	now := s.clock.Now()
	if err := s.repo.EnsureRow(ctx, tx, key, now); err != nil {
		return domain.StateClear, db.Infra(err)
	}

	start := time.Now()
	current, err := s.repo.LockRow(ctx, tx, key)
	s.consistency.ObserveDBLockWait(metrics.LockResourceBinFlag, time.Since(start))
	if err != nil {
		return domain.StateClear, db.Infra(err)
	}

	others, err := s.repo.CountDisposing(ctx, tx, key, lineID)
	if err != nil {
		return domain.StateClear, db.Infra(err)
	}

	next := domain.Recompute(domain.Snapshot{OtherDisposing: others, Line: line})
	if current != nil && current.Value == next {
		return next, nil
	}
	if err := s.repo.UpdateValue(ctx, tx, key, next, now); err != nil {
		return domain.StateClear, db.Infra(err)
	}

	s.metrics.RecordBinTransition(ctx, next.String())
	s.log.Debug("bin state changed",
		zap.Int64("category_id", key.CategoryID),
		zap.Int64("store_id", key.StoreID),
		zap.String("state", next.String()),
	)
	return next, nil
}

func (s *Service) List(ctx context.Context, actor access.Actor, req domain.ListRequest) ([]domain.FlagView, error) {
	if !actor.Valid() {
		return nil, access.ErrInvalidActor
	}
	if !access.Can(actor.Role, access.ResourceBin, access.ActionRead) {
		return nil, access.ErrPermissionDenied
	}

	scope := access.ScopeFor(actor, access.ResourceBin).Narrow(req.StoreID)
	rows, err := s.repo.List(ctx, s.db, domain.ListFilter{Scope: scope, OnlyFlagged: req.OnlyFlagged})
	if err != nil {
		return nil, db.Infra(err)
	}
	return rows, nil
}

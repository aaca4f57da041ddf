package cloudmetrics

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/trashforcoin/internal/config"
	reportdomain "github.com/smallbiznis/trashforcoin/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultInterval = time.Minute
	exportTimeout   = 10 * time.Second
)

var Module = fx.Module("cloud.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(Register),
)

// Register starts the export worker when a pusher is configured.
func Register(lc fx.Lifecycle, cfg config.Config, pusher Pusher, reports reportdomain.Service, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	exp := NewExporter(pusher, reports, cfg.CloudMetrics.Interval, logger)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			exp.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return exp.Stop(ctx)
		},
	})
}

// Exporter periodically snapshots every store and pushes the gauges. It keeps its
// own registry so process metrics never leave the host.
type Exporter struct {
	registry *prometheus.Registry
	gauges   *storeGauges
	pusher   Pusher
	reports  reportdomain.Service
	interval time.Duration
	logger   *zap.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	errorOnce atomic.Bool
}

func NewExporter(pusher Pusher, reports reportdomain.Service, interval time.Duration, logger *zap.Logger) *Exporter {
	if interval <= 0 {
		interval = defaultInterval
	}
	registry := prometheus.NewRegistry()
	return &Exporter{
		registry: registry,
		gauges:   newStoreGauges(registry),
		pusher:   pusher,
		reports:  reports,
		interval: interval,
		logger:   logger.Named("cloudmetrics"),
	}
}

func (e *Exporter) Start() {
	if e == nil || e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})

	go func() {
		defer close(e.doneCh)
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()

		e.logger.Info("starting cloud metrics background worker", zap.Duration("interval", e.interval))
		e.exportOnce()
		for {
			select {
			case <-ticker.C:
				e.exportOnce()
			case <-e.stopCh:
				e.logger.Info("stopping cloud metrics background worker")
				return
			}
		}
	}()
}

func (e *Exporter) Stop(ctx context.Context) error {
	if e == nil || e.stopCh == nil {
		return nil
	}
	close(e.stopCh)
	select {
	case <-e.doneCh:
	case <-ctx.Done():
		return ctx.Err()
	}
	if closer, ok := e.pusher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (e *Exporter) exportOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	if err := e.Export(ctx); err != nil {
		e.logExportError(err)
		return
	}
	e.errorOnce.Store(false)
}

// Export takes one snapshot and pushes it.
func (e *Exporter) Export(ctx context.Context) error {
	snapshots, err := e.reports.StoreSnapshots(ctx)
	if err != nil {
		return err
	}
	e.gauges.Observe(snapshots)
	return e.pusher.Push(ctx, e.registry)
}

// logExportError logs the first failure of a streak only.
func (e *Exporter) logExportError(err error) {
	if e.errorOnce.CompareAndSwap(false, true) {
		e.logger.Warn("cloud metrics export failed", zap.Error(err))
	}
}

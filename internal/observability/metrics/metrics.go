package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	orderLines     metric.Int64Counter
	checkouts      metric.Int64Counter
	stockMovements metric.Int64Counter
	stockRejected  metric.Int64Counter
	binTransitions metric.Int64Counter
	scans          metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "trashforcoin"
	}
	meter := provider.Meter(name)

	orderLines, err := meter.Int64Counter("trashforcoin_order_lines_total")
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("trashforcoin_checkouts_total")
	if err != nil {
		return nil, err
	}
	stockMovements, err := meter.Int64Counter("trashforcoin_stock_movements_total")
	if err != nil {
		return nil, err
	}
	stockRejected, err := meter.Int64Counter("trashforcoin_stock_rejected_total")
	if err != nil {
		return nil, err
	}
	binTransitions, err := meter.Int64Counter("trashforcoin_bin_transitions_total")
	if err != nil {
		return nil, err
	}
	scans, err := meter.Int64Counter("trashforcoin_cart_scans_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		orderLines:     orderLines,
		checkouts:      checkouts,
		stockMovements: stockMovements,
		stockRejected:  stockRejected,
		binTransitions: binTransitions,
		scans:          scans,
	}, nil
}

// RecordOrderLine counts order line mutations by action (add, merge, edit, delete, disposal).
func (m *Metrics) RecordOrderLine(ctx context.Context, storeID int64, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.Int64("store_id", storeID),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.orderLines.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckout counts completed cart checkouts.
func (m *Metrics) RecordCheckout(ctx context.Context, storeID int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Int64("store_id", storeID))
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockMovement counts stock ledger writes by movement kind.
func (m *Metrics) RecordStockMovement(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.stockMovements.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordStockRejected counts reservations refused for lack of stock.
func (m *Metrics) RecordStockRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.stockRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBinTransition counts recomputed bin flags by resulting state.
func (m *Metrics) RecordBinTransition(ctx context.Context, state string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("state", strings.TrimSpace(state)))
	m.binTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordScan counts cart scans by how the barcode resolved (catalog, codec, miss).
func (m *Metrics) RecordScan(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.scans.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"store_id":    {},
	"action":      {},
	"kind":        {},
	"state":       {},
	"outcome":     {},
	"reason":      {},
	"status_code": {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

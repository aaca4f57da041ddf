package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.Int64("store_id", 3),
		attribute.String("email", "member@example.com"),
		attribute.String("kind", "reserve"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "store_id" && attrs[1].Key != "store_id" {
		t.Fatalf("expected store_id to be retained")
	}
	if attrs[0].Key != "kind" && attrs[1].Key != "kind" {
		t.Fatalf("expected kind to be retained")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordCheckout(context.Background(), 1)
	m.RecordScan(context.Background(), "miss")
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "trashforcoin"}, noop.NewMeterProvider())
	require.NoError(t, err)
	m.RecordOrderLine(context.Background(), 1, "add")
	m.RecordStockMovement(context.Background(), "reserve")
	m.RecordBinTransition(context.Background(), "disposing")
}

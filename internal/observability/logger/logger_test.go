package logger

import (
	"context"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/trashforcoin/internal/observability/context"
	"github.com/smallbiznis/trashforcoin/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestContextFieldsSkipsEmptyValues(t *testing.T) {
	assert.Empty(t, contextFields(context.Background()))

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithActor(ctx, "moderator", "12")
	ctx = obscontext.WithStoreID(ctx, "7")
	ctx = correlation.ContextWithCorrelationID(ctx, "01HZX")

	got := map[string]string{}
	for _, field := range contextFields(ctx) {
		got[field.Key] = field.String
	}
	assert.Equal(t, map[string]string{
		"request_id":     "req-1",
		"actor_role":     "moderator",
		"actor_id":       "12",
		"store_id":       "7",
		"correlation_id": "01HZX",
	}, got)
}

func TestWithContextKeepsBaseWhenNothingToAdd(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestProductionConfig(t *testing.T) {
	cfg, err := productionConfig(Config{Format: " Console ", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, "debug", cfg.Level.String())

	cfg, err = productionConfig(Config{Level: "warn", Debug: true})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, "warn", cfg.Level.String())

	_, err = productionConfig(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestSamplingOrDefault(t *testing.T) {
	initial, thereafter, window := samplingOrDefault(Config{})
	assert.Equal(t, 100, initial)
	assert.Equal(t, 100, thereafter)
	assert.Equal(t, time.Second, window)

	initial, thereafter, window = samplingOrDefault(Config{SamplingInitial: 10, SamplingThereafter: 5, SamplingWindow: time.Minute})
	assert.Equal(t, 10, initial)
	assert.Equal(t, 5, thereafter)
	assert.Equal(t, time.Minute, window)
}

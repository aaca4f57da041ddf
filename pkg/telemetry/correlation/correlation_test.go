package correlation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureCorrelationIDIsStable(t *testing.T) {
	ctx, first := EnsureCorrelationID(context.Background())
	assert.NotEmpty(t, first)

	_, second := EnsureCorrelationID(ctx)
	assert.Equal(t, first, second)
}

func TestContextWithCorrelationIDIgnoresEmpty(t *testing.T) {
	ctx := ContextWithCorrelationID(context.Background(), "")
	assert.Empty(t, ExtractCorrelationID(ctx))
}

package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsSensitiveKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/cart/scan"),
		attribute.String("user.email", "a@b.c"),
		attribute.String("auth_token", "x"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncatesDetail(t *testing.T) {
	err := SafeError(errors.New("insufficient_stock: product 12 has 1"))
	assert.EqualError(t, err, "insufficient_stock")
	assert.Nil(t, SafeError(nil))
}

func TestNormalizeRatio(t *testing.T) {
	assert.Equal(t, 0.0, normalizeRatio(-1))
	assert.Equal(t, 1.0, normalizeRatio(3))
	assert.Equal(t, 0.25, normalizeRatio(0.25))
}

package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractContext reads W3C trace headers into ctx.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if carrier == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var blockedAttributeFragments = []string{
	"password",
	"token",
	"secret",
	"cookie",
	"authorization",
	"email",
}

// SafeAttributes drops attributes whose key looks like it carries credentials or PII.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if isBlockedKey(string(attr.Key)) {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

// SafeError strips the message down to a low-cardinality form safe for span events.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return errors.New("error")
	}
	if idx := strings.IndexAny(msg, ":\n"); idx > 0 {
		msg = msg[:idx]
	}
	if len(msg) > 128 {
		msg = msg[:128]
	}
	if isBlockedKey(msg) {
		return errors.New("redacted")
	}
	return errors.New(msg)
}

func isBlockedKey(value string) bool {
	value = strings.ToLower(value)
	for _, fragment := range blockedAttributeFragments {
		if strings.Contains(value, fragment) {
			return true
		}
	}
	return false
}

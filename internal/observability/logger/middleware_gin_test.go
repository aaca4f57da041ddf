package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/trashforcoin/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		name      string
		route     string
		status    int
		errorType string
		want      zapcore.Level
	}{
		{"ok", "/api/orders", http.StatusOK, "", zapcore.InfoLevel},
		{"health check", "/health", http.StatusOK, "", zapcore.DebugLevel},
		{"server error", "/api/cart/checkout", http.StatusInternalServerError, "internal_error", zapcore.ErrorLevel},
		{"scanner typo", "/api/cart/scan", http.StatusBadRequest, "validation_error", zapcore.DebugLevel},
		{"unknown barcode", "/api/cart/scan", http.StatusNotFound, "not_found", zapcore.InfoLevel},
		{"stock conflict", "/api/cart/lines", http.StatusConflict, "conflict", zapcore.WarnLevel},
		{"bad edit", "/api/orders/:id", http.StatusBadRequest, "validation_error", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, requestLevel(tt.route, tt.status, tt.errorType))
		})
	}
}

func TestGinMiddlewareSetsRequestAndClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(GinMiddleware(MiddlewareConfig{}))

	var requestID, ip, userAgent string
	engine.GET("/ping", func(c *gin.Context) {
		requestID = obscontext.RequestIDFromContext(c.Request.Context())
		ip, userAgent = obscontext.ClientFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "till-7")
	req.Header.Set("User-Agent", "scanner/1.0")
	req.RemoteAddr = "10.0.0.5:5000"
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "till-7", requestID)
	assert.Equal(t, "till-7", rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "10.0.0.5", ip)
	assert.Equal(t, "scanner/1.0", userAgent)
}

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/trashforcoin/internal/access"
	auditdomain "github.com/smallbiznis/trashforcoin/internal/audit/domain"
	authdomain "github.com/smallbiznis/trashforcoin/internal/auth/domain"
	categorydomain "github.com/smallbiznis/trashforcoin/internal/category/domain"
	inventorydomain "github.com/smallbiznis/trashforcoin/internal/inventory/domain"
	orderdomain "github.com/smallbiznis/trashforcoin/internal/order/domain"
	productdomain "github.com/smallbiznis/trashforcoin/internal/product/domain"
	"github.com/smallbiznis/trashforcoin/internal/ratelimit"
	reportdomain "github.com/smallbiznis/trashforcoin/internal/report/domain"
	storedomain "github.com/smallbiznis/trashforcoin/internal/store/domain"
	userdomain "github.com/smallbiznis/trashforcoin/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the same type and code the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}

var validationErrors = []error{
	ErrInvalidRequest,
	access.ErrInvalidRole,
	storedomain.ErrInvalidName,
	storedomain.ErrInvalidID,
	categorydomain.ErrInvalidName,
	categorydomain.ErrInvalidID,
	productdomain.ErrInvalidID,
	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidStock,
	productdomain.ErrInvalidCategory,
	userdomain.ErrInvalidID,
	userdomain.ErrInvalidEmail,
	userdomain.ErrInvalidPassword,
	userdomain.ErrStoreRequired,
	userdomain.ErrWrongPassword,
	inventorydomain.ErrInvalidQuantity,
	inventorydomain.ErrInvalidBarcode,
	inventorydomain.ErrInvalidPageToken,
	orderdomain.ErrInvalidQuantity,
	orderdomain.ErrInvalidDisquantity,
	orderdomain.ErrInvalidOrderID,
	orderdomain.ErrInvalidEmail,
	orderdomain.ErrInvalidScanCode,
	orderdomain.ErrInvalidReceiptBarcode,
	orderdomain.ErrStoreRequired,
	orderdomain.ErrSessionRequired,
	reportdomain.ErrInvalidRange,
	auditdomain.ErrInvalidPageToken,
	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,
}

var notFoundErrors = []error{
	ErrNotFound,
	storedomain.ErrNotFound,
	categorydomain.ErrNotFound,
	productdomain.ErrNotFound,
	userdomain.ErrNotFound,
	userdomain.ErrStoreNotFound,
	inventorydomain.ErrProductNotFound,
	orderdomain.ErrProductNotFound,
	orderdomain.ErrLineNotFound,
	gorm.ErrRecordNotFound,
}

// conflictErrors is ordered most specific first; a merge overflow is both a duplicate
// line and a stock shortfall and reports as the former.
var conflictErrors = []error{
	ErrConflict,
	orderdomain.ErrDuplicateLine,
	orderdomain.ErrLineClosed,
	orderdomain.ErrEmptyOrder,
	orderdomain.ErrDisposalExceedsQuantity,
	inventorydomain.ErrInsufficientStock,
	inventorydomain.ErrNegativeStock,
	inventorydomain.ErrDuplicateBarcode,
	inventorydomain.ErrConcurrentUpdate,
	storedomain.ErrSlugTaken,
	categorydomain.ErrInUse,
	productdomain.ErrInUse,
	userdomain.ErrEmailTaken,
	userdomain.ErrLastRootAdmin,
	ratelimit.ErrCheckoutInProgress,
}

func matchError(err error, candidates []error) (error, bool) {
	for _, candidate := range candidates {
		if errors.Is(err, candidate) {
			return candidate, true
		}
	}
	return nil, false
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if matched, ok := matchError(err, validationErrors); ok {
		code := matched.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Code:    code,
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, access.ErrInvalidActor),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
			Code:    codeOf(err, ErrUnauthorized),
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, access.ErrPermissionDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
			Code:    "permission_denied",
		}
	case errors.Is(err, authdomain.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many login attempts",
			Code:    authdomain.ErrTooManyAttempts.Error(),
		}
	}

	if matched, ok := matchError(err, notFoundErrors); ok {
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
			Code:    matched.Error(),
		}
	}
	if matched, ok := matchError(err, conflictErrors); ok {
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
			Code:    matched.Error(),
		}
	}

	switch {
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, orderdomain.ErrReceiptBarcodeExhausted):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
			Code:    codeOf(err, ErrServiceUnavailable),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// codeOf returns the sentinel text of err when it is a plain sentinel, fallback otherwise.
func codeOf(err error, fallback error) string {
	code := err.Error()
	if strings.ContainsAny(code, " :") {
		return fallback.Error()
	}
	return code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "wrong_password":
		return "current_password"
	case "store_required":
		return "store_id"
	case "cart_session_required":
		return "session"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "wrong_password":
		return "current password does not match"
	case "store_required":
		return "a store is required"
	default:
		return "invalid value"
	}
}

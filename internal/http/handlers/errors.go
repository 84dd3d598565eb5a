// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are stable, lowercase and machine-readable; clients branch on them.
// Usage-limit rejections are the exception: they carry the upper-case limit
// code (DAILY_LIMIT_REACHED, ...) so that clients keyed on those strings
// keep working.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "feedback already exists"
//	}
package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUpstream         = "upstream_error"
	ErrCodeUnavailable      = "service_unavailable"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeInvalidSignature = "invalid_signature"
)

// errorMapping pairs a service sentinel with its HTTP status and code.
type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable is consulted in order with errors.Is.
var errorTable = []errorMapping{
	{services.ErrChatNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrMessageNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrAttachmentNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrConnectorNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrTaskNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrAPIKeyNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrShareNotFound, http.StatusNotFound, ErrCodeNotFound},
	{services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},

	{services.ErrEmptyPrompt, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrTooLong, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidFeedback, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidParent, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrNotRegenerable, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUnknownModel, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrEmptyFile, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUnknownConnector, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidOAuthState, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidTask, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUnknownProvider, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidAPIKey, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrInvalidPreferences, http.StatusBadRequest, ErrCodeBadRequest},
	{services.ErrUnknownBillingEvent, http.StatusBadRequest, ErrCodeBadRequest},

	{services.ErrFileTooLarge, http.StatusRequestEntityTooLarge, ErrCodeTooLarge},
	{services.ErrForbiddenFeedback, http.StatusForbidden, ErrCodeForbidden},
	{services.ErrDuplicateFeedback, http.StatusConflict, ErrCodeConflict},
	{services.ErrInvalidSignature, http.StatusUnauthorized, ErrCodeInvalidSignature},
	{services.ErrInvalidToken, http.StatusUnauthorized, ErrCodeUnauthorized},
	{services.ErrThreadBroken, http.StatusConflict, ErrCodeConflict},

	{services.ErrProviderUnavailable, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{services.ErrConnectorNotConfigured, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{services.ErrEncryptionDisabled, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{services.ErrAuthDisabled, http.StatusServiceUnavailable, ErrCodeUnavailable},
}

// apiError is a classified service error.
type apiError struct {
	status     int
	code       string
	message    string
	retryAfter int  // seconds, 0 = none
	internal   bool // unmapped; message is generic
}

// classify maps a service error to status, code and message. Usage limits
// become 429 (403 for PREMIUM_REQUIRED) with the limit code and a
// Retry-After; provider failures become 502 upstream_error with the
// provider's message. Anything unmapped is a generic 500 carrying
// fallbackCode.
func classify(err error, fallbackCode string) apiError {
	var le *services.LimitError
	if errors.As(err, &le) {
		if le.Code == services.CodePremiumRequire {
			return apiError{status: http.StatusForbidden, code: le.Code, message: le.Error()}
		}
		ae := apiError{status: http.StatusTooManyRequests, code: le.Code, message: le.Error()}
		if !le.ResetAt.IsZero() {
			ae.retryAfter = max(int(math.Ceil(time.Until(le.ResetAt).Seconds())), 1)
		}
		return ae
	}

	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		return apiError{status: http.StatusBadGateway, code: ErrCodeUpstream, message: ue.Error()}
	}

	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return apiError{status: m.status, code: m.code, message: err.Error()}
		}
	}
	return apiError{
		status:   http.StatusInternalServerError,
		code:     fallbackCode,
		message:  "internal server error",
		internal: true,
	}
}

// respondError writes the error envelope for a service error. Unmapped and
// upstream errors are attached to the context for the access log.
func respondError(c *gin.Context, err error, fallbackCode string) {
	ae := classify(err, fallbackCode)
	if ae.internal || ae.status == http.StatusBadGateway {
		_ = c.Error(err)
	}
	if ae.retryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(ae.retryAfter))
	}
	fail(c, ae.status, ae.code, ae.message)
}

package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/repo"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	// Echo of X-Request-ID, for matching a client error to server logs.
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable machine-readable code, see errors.go.
	Code string `json:"code" example:"not_found"`
	// Message is safe to show to end users.
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged at error
// level with the request-scoped logger; 4xx at debug.
func fail(c *gin.Context, status int, code, msg string) {
	lg := middleware.LoggerFrom(c)
	ev := lg.Debug()
	if status >= http.StatusInternalServerError {
		ev = lg.Error()
	}
	ev.Int("status", status).Str("code", code).Str("message", msg).Msg("api error")

	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for callers outside the package, such as the router's
// NoRoute handler.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) { c.JSON(status, body) }

func noContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// bindJSON decodes and validates the body into dst, answering 400 with msg
// when that fails.
func bindJSON(c *gin.Context, dst any, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.LoggerFrom(c).Debug().Err(err).Msg("bind body")
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
		return false
	}
	return true
}

// listETag builds a weak validator for a list view of scope. parts carry
// whatever else shapes the response, such as the page.
func listETag(kind, scope string, s repo.Stats, parts ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, `W/"%s:%s:%d:%d`, kind, scope, s.Count, s.Version())
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	b.WriteByte('"')
	return b.String()
}

// notModified sets the ETag header and answers 304 when the client already
// holds that version. It reports whether the response was written.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	for _, tag := range strings.Split(c.GetHeader("If-None-Match"), ",") {
		if t := strings.TrimSpace(tag); t == etag || t == "*" {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}

// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for unsafe routes. The key is
// validated and scoped to (user, chat, route) so that the same key reused on
// a different chat or endpoint never replays a foreign result. When the
// injected lookup finds a stored result, the request is marked as a replay
// and rate limiting is skipped; the handler decides how to serve it.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the idempotency key.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemScope  = "idem.scope"
	ctxKeyIdemReplay = "idem.replay" // string: stored result id
	ctxKeyRateBypass = "rate.bypass"
)

var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// IdempotencyScope identifies one idempotent operation.
type IdempotencyScope struct {
	UserID string
	ChatID string
	Route  string
	Key    string
}

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Nil uses ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// IdempotencyLookup returns the id of a stored, unexpired result for scope.
// Lookup errors do not block the request.
type IdempotencyLookup func(ctx context.Context, scope IdempotencyScope, now time.Time) (resultID string, found bool, err error)

// IdempotencyValidator validates the Idempotency-Key header on unsafe
// methods and stashes its scope. It must run after Authenticate so the
// scope carries the caller. Requests without the header pass untouched.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultIdemPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		p, ok := PrincipalFrom(c)
		if !ok {
			c.Next()
			return
		}
		scope := IdempotencyScope{
			UserID: p.UserID,
			ChatID: c.Param("id"),
			Route:  c.FullPath(),
			Key:    key,
		}
		c.Set(ctxKeyIdemScope, scope)

		if lookup != nil {
			if id, found, err := lookup(c.Request.Context(), scope, time.Now().UTC()); err != nil {
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			} else if found {
				c.Set(ctxKeyIdemReplay, id)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

// IdempotencyScopeFrom returns the validated scope of this request.
func IdempotencyScopeFrom(c *gin.Context) (IdempotencyScope, bool) {
	v, ok := c.Get(ctxKeyIdemScope)
	if !ok {
		return IdempotencyScope{}, false
	}
	s, ok := v.(IdempotencyScope)
	return s, ok && s.Key != ""
}

// ReplayOf returns the stored result id when this request replays an
// earlier one.
func ReplayOf(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return "", false
	}
	id, _ := v.(string)
	return id, id != ""
}

// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity. A bearer token is verified by
// the injected TokenVerifier; in development the X-User-ID header may stand
// in for a token. The resolved Principal is stored in the Gin context, and
// its id under "userID" for the logger and the rate limiter.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderUserID is the development identity header.
const HeaderUserID = "X-User-ID"

const (
	ctxKeyPrincipal = "auth.principal"
	ctxKeyUserID    = "userID"
	maxUserIDLen    = 64
)

// Principal is the authenticated caller.
type Principal struct {
	UserID    string
	Email     string
	Anonymous bool
}

// TokenVerifier validates a raw bearer token.
type TokenVerifier func(token string) (Principal, error)

// AuthOptions configures Authenticate.
type AuthOptions struct {
	// Verify checks bearer tokens. Nil rejects every bearer token.
	Verify TokenVerifier
	// AllowDevHeader honours X-User-ID when no bearer token is sent.
	AllowDevHeader bool
}

// Authenticate resolves the caller when credentials are present. An invalid
// token is rejected with 401; a request without credentials passes through
// unattributed so RequireIdentity can decide per route.
func Authenticate(opts AuthOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearer(c.GetHeader("Authorization")); ok {
			if opts.Verify == nil {
				abortUnauthorized(c, "token authentication is not configured")
				return
			}
			p, err := opts.Verify(raw)
			if err != nil || p.UserID == "" {
				abortUnauthorized(c, "invalid or expired token")
				return
			}
			setPrincipal(c, p)
			c.Next()
			return
		}

		if opts.AllowDevHeader {
			if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
				if len(uid) > maxUserIDLen {
					abortUnauthorized(c, "X-User-ID too long")
					return
				}
				setPrincipal(c, Principal{UserID: uid})
			}
		}
		c.Next()
	}
}

// RequireIdentity rejects requests that Authenticate could not attribute.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := PrincipalFrom(c); !ok {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller resolved by Authenticate.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok && p.UserID != ""
}

func setPrincipal(c *gin.Context, p Principal) {
	c.Set(ctxKeyPrincipal, p)
	c.Set(ctxKeyUserID, p.UserID)

	// Enrich the request-scoped logger installed by ContextLogger.
	l := LoggerFrom(c).With().Str("user_id", p.UserID).Logger()
	c.Set(ctxKeyLogger, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

func bearer(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	zerolog.Ctx(c.Request.Context()).Debug().Str("reason", msg).Msg("unauthorized")
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}

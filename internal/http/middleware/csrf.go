// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements double-submit CSRF protection. A token is a random
// nonce plus its HMAC-SHA256 under a server secret. It is handed out both as
// a cookie and in the response body; unsafe requests must echo it in the
// X-CSRF-Token header, and the header must equal the cookie.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderCSRFToken carries the echoed token on unsafe requests.
	HeaderCSRFToken = "X-CSRF-Token"
	// CSRFCookie is the cookie holding the issued token.
	CSRFCookie = "csrf_token"
)

// CSRF issues and checks double-submit tokens.
type CSRF struct {
	secret  []byte
	enabled bool
	ttl     time.Duration
	exempt  map[string]struct{}
}

// NewCSRF returns a CSRF guard. exemptRoutes are Gin route patterns (as
// reported by c.FullPath) that skip the check, such as webhooks.
func NewCSRF(secret string, enabled bool, exemptRoutes ...string) *CSRF {
	ex := make(map[string]struct{}, len(exemptRoutes))
	for _, r := range exemptRoutes {
		ex[r] = struct{}{}
	}
	return &CSRF{secret: []byte(secret), enabled: enabled, ttl: 12 * time.Hour, exempt: ex}
}

// Issue mints a token, sets the cookie and returns the token.
func (x *CSRF) Issue(c *gin.Context) (string, error) {
	nonce := make([]byte, 18)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	n := base64.RawURLEncoding.EncodeToString(nonce)
	tok := n + "." + x.sign(n)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(x.ttl.Seconds()),
		Secure:   isHTTPS(c.Request),
		SameSite: http.SameSiteStrictMode,
	})
	return tok, nil
}

// Valid reports whether tok was minted with this guard's secret.
func (x *CSRF) Valid(tok string) bool {
	n, sig, ok := strings.Cut(tok, ".")
	if !ok || n == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(x.sign(n)))
}

func (x *CSRF) sign(nonce string) string {
	m := hmac.New(sha256.New, x.secret)
	m.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// Handler enforces the token on unsafe methods when the guard is enabled.
func (x *CSRF) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !x.enabled {
			c.Next()
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if _, ok := x.exempt[c.FullPath()]; ok {
			c.Next()
			return
		}

		hdr := c.GetHeader(HeaderCSRFToken)
		cookie, err := c.Cookie(CSRFCookie)
		if err != nil || hdr == "" ||
			subtle.ConstantTimeCompare([]byte(hdr), []byte(cookie)) != 1 ||
			!x.Valid(hdr) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "csrf_failed",
				"message":    "missing or invalid CSRF token",
			})
			return
		}
		c.Next()
	}
}

// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, the response hardening applied to
// every route. Responses are JSON, SSE or attachment bytes, so the default
// content security policy forbids everything; paths under CSPExempt (the
// Swagger UI) get none.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
//
// HSTS is sent only when EnableHSTS is set and the request arrived over
// HTTPS (directly or per X-Forwarded-Proto). HSTSMaxAge defaults to 180
// days. NoStore adds Cache-Control: no-store with the legacy Pragma and
// Expires companions. EnablePolicy adds Permissions-Policy and
// X-Permitted-Cross-Domain-Policies.
//
// ExposeHeaders are appended to Access-Control-Expose-Headers so browser
// clients can read them; X-Request-ID is always exposed.
type SecurityOptions struct {
	EnableHSTS    bool
	HSTSMaxAge    time.Duration
	NoStore       bool
	EnablePolicy  bool
	ExposeHeaders []string
	CSPExempt     []string // path prefixes
}

// lockedDownCSP stops a browser from running or embedding anything the API
// returns, including uploaded files opened in a tab.
const lockedDownCSP = "default-src 'none'; frame-ancestors 'none'; sandbox"

// SecurityHeaders adds nosniff, frame denial and no-referrer to every
// response, plus the optional headers selected in opt.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hsts := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"
	expose := append([]string{requestIDHeader}, opt.ExposeHeaders...)

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if !hasAnyPrefix(c.Request.URL.Path, opt.CSPExempt) {
			h.Set("Content-Security-Policy", lockedDownCSP)
		}

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		const hdr = "Access-Control-Expose-Headers"
		cur := h.Get(hdr)
		for _, name := range expose {
			if containsToken(cur, name) {
				continue
			}
			if cur == "" {
				cur = name
			} else {
				cur += ", " + name
			}
		}
		h.Set(hdr, cur)

		c.Next()
	}
}

// isHTTPS reports whether the request used TLS directly or behind a proxy
// that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// containsToken reports whether a comma-separated header list holds name.
func containsToken(list, name string) bool {
	for _, p := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

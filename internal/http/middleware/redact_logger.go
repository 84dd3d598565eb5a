// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access log. Bodies are never
// logged. Credentials, cookies, CSRF tokens and webhook signatures are
// masked outright, as are OAuth callback parameters in the query string.
// Provider API keys, emails, phone numbers and UUIDs are pattern-redacted
// everywhere else.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions lists extra headers to mask, merged case-insensitively with
// the built-in set.
type RedactOptions struct {
	MaskHeaders []string
}

// alwaysMasked headers never reach the logs.
var alwaysMasked = []string{
	"Authorization",
	"Cookie",
	"Set-Cookie",
	HeaderCSRFToken,
	"X-Signature",
}

var (
	// secretParamRE matches query parameters that carry OAuth codes, state
	// or tokens.
	secretParamRE = regexp.MustCompile(`(?i)(^|&)(code|state|token|access_token|refresh_token|api_key|key)=[^&]*`)
	// Provider key shapes: sk-..., sk-ant-..., AIza...
	apiKeyRE = regexp.MustCompile(`\b(?:sk-[A-Za-z0-9_\-]{16,}|AIza[0-9A-Za-z_\-]{30,})`)
	// UUIDs are replaced before phone numbers so that their digit runs are
	// not mistaken for phones.
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func redactPII(s string) string {
	if s == "" {
		return s
	}
	s = apiKeyRE.ReplaceAllString(s, "[REDACTED:key]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

// RedactingLogger emits one structured line per request at info, warn (4xx)
// or error (5xx, or when handlers attached errors to the Gin context).
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	mask := make(map[string]struct{}, len(alwaysMasked)+len(opts.MaskHeaders))
	for _, h := range append(append([]string{}, alwaysMasked...), opts.MaskHeaders...) {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			mask[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := redactPII(secretParamRE.ReplaceAllString(c.Request.URL.RawQuery, "$1$2=[REDACTED]"))
		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := mask[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redactPII(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		ev := log.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		if uid := c.GetString(ctxKeyUserID); uid != "" {
			ev = ev.Str("user_id", uid)
		}
		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}

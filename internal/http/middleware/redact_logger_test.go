package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func withCapturedLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// accessLine decodes the single access-log record in buf.
func accessLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	buf.Reset()
	return rec
}

func TestRedactPII(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"mail a.b+x@example.com": "mail [REDACTED:email]",
		"id 123e4567-e89b-12d3-a456-426614174000": "id [REDACTED:id]",
		"call 555-123-4567":                       "call [REDACTED:phone]",
		"key sk-proj-abcdefghijklmnop1234":        "key [REDACTED:key]",
		"plain text":                              "plain text",
	}
	for in, want := range cases {
		if got := redactPII(in); got != want {
			t.Fatalf("redactPII(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestRedactingLogger_MasksSecrets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-resp"); c.Next() })
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{" x-api-key "}}))
	r.GET("/connectors/callback", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/connectors/callback?code=4%2F0Ab&state=s3cr3t&scope=drive&email=a@b.io", nil)
	req.Header.Set("Authorization", "Bearer eyJhbGciOi")
	req.Header.Set("Cookie", "csrf_token=abc")
	req.Header.Set("X-API-Key", "shhh")
	req.Header.Set(HeaderCSRFToken, "nonce.sig")
	req.Header.Set("X-Signature", "sha256=abcdef")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Debug", "user a@b.com key sk-ant-0123456789abcdefXYZ")
	req.Header.Set("X-Request-ID", "rid-req")
	r.ServeHTTP(httptest.NewRecorder(), req)

	raw := buf.String()
	for _, secret := range []string{"eyJhbGciOi", "abc", "shhh", "nonce.sig", "abcdef", "4%2F0Ab", "s3cr3t", "sk-ant-"} {
		if strings.Contains(raw, secret) {
			t.Fatalf("secret %q leaked: %s", secret, raw)
		}
	}
	rec := accessLine(t, buf)
	if rec["level"] != "info" || rec["path"] != "/connectors/callback" || rec["request_id"] != "rid-resp" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if q := rec["query"]; q != "code=[REDACTED]&state=[REDACTED]&scope=drive&email=[REDACTED:email]" {
		t.Fatalf("query = %v", q)
	}
	hdr := rec["headers"].(map[string]any)
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key", "X-Csrf-Token", "X-Signature"} {
		if hdr[h] != "[REDACTED]" {
			t.Fatalf("%s = %v", h, hdr[h])
		}
	}
	if hdr["X-Debug"] != "user [REDACTED:email] key [REDACTED:key]" || hdr["X-Forwarded-For"] != "203.0.113.7" {
		t.Fatalf("pattern redaction: %v", hdr)
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := withCapturedLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}), Authenticate(AuthOptions{AllowDevHeader: true}))
	r.GET("/chats/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	r.GET("/soft", func(c *gin.Context) {
		_ = c.Error(errors.New("storage delete failed"))
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		path, level string
		extra       map[string]any
	}{
		{"/chats/c1", "warn", map[string]any{"path": "/chats/:id", "request_id": "rid-in"}},
		{"/boom", "error", nil},
		{"/soft", "error", map[string]any{"user_id": "u7"}},
		{"/nowhere", "warn", map[string]any{"path": "/nowhere"}},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("X-Request-ID", "rid-in")
		req.Header.Set(HeaderUserID, "u7")
		r.ServeHTTP(httptest.NewRecorder(), req)

		rec := accessLine(t, buf)
		if rec["level"] != tc.level {
			t.Fatalf("%s logged at %v, want %s", tc.path, rec["level"], tc.level)
		}
		for k, v := range tc.extra {
			if rec[k] != v {
				t.Fatalf("%s: %s = %v, want %v", tc.path, k, rec[k], v)
			}
		}
		if tc.path == "/soft" && !strings.Contains(rec["errors"].(string), "storage delete failed") {
			t.Fatalf("handler errors not logged: %v", rec)
		}
	}
}

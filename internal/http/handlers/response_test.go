package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/llm-chat-backend/internal/repo"
)

func TestFail_EnvelopeAndLogLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		status    int
		code      string
		wantLevel string
	}{
		{http.StatusInternalServerError, ErrCodeInternal, `"level":"error"`},
		{http.StatusBadGateway, ErrCodeInternal, `"level":"error"`},
		{http.StatusNotFound, ErrCodeNotFound, `"level":"debug"`},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		lg := zerolog.New(&buf).Level(zerolog.DebugLevel)

		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Header("X-Request-ID", "rid-1")
			c.Set("logger", &lg)
			c.Next()
		})
		r.GET("/x", func(c *gin.Context) {
			Fail(c, tc.status, tc.code, "nope")
			c.JSON(http.StatusOK, gin.H{"unreachable": true})
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != tc.status {
			t.Fatalf("status = %d, want %d", w.Code, tc.status)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
			t.Fatalf("body %q: %v", w.Body.String(), err)
		}
		if er != (ErrorResponse{RequestID: "rid-1", Code: tc.code, Message: "nope"}) {
			t.Fatalf("envelope = %+v", er)
		}
		if !strings.Contains(buf.String(), tc.wantLevel) {
			t.Fatalf("%d logged %q, want %s", tc.status, buf.String(), tc.wantLevel)
		}
	}
}

func TestSuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/ok", func(c *gin.Context) { ok(c, http.StatusCreated, gin.H{"n": 1}) })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))
	if w.Code != http.StatusCreated || strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Fatalf("ok: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent: %d %q", w.Code, w.Body.String())
	}
}

func TestListETag(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	st := repo.Stats{Count: 3, LastUpdated: &at}

	if got := listETag("chats", "u1", st, 2, 20); got != `W/"chats:u1:3:1700000000123:2:20"` {
		t.Fatalf("listETag = %s", got)
	}
	if got := listETag("messages", "c1", repo.Stats{}); got != `W/"messages:c1:0:0"` {
		t.Fatalf("empty listETag = %s", got)
	}
	if listETag("chats", "u1", st, 1, 20) == listETag("chats", "u1", st, 2, 20) {
		t.Fatal("pages share a validator")
	}
}

func TestNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const etag = `W/"chats:u1:1:5"`
	cases := []struct {
		inm  string
		want int
	}{
		{"", http.StatusOK},
		{`W/"chats:u1:1:4"`, http.StatusOK},
		{etag, http.StatusNotModified},
		{`W/"other", ` + etag, http.StatusNotModified},
		{"*", http.StatusNotModified},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) {
			if notModified(c, etag) {
				return
			}
			c.String(http.StatusOK, "body")
		})
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if tc.inm != "" {
			req.Header.Set("If-None-Match", tc.inm)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want || w.Header().Get("ETag") != etag {
			t.Fatalf("If-None-Match %q: status %d etag %q", tc.inm, w.Code, w.Header().Get("ETag"))
		}
	}
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	type body struct {
		Name string `json:"name" binding:"required"`
	}
	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var b body
		if !bindJSON(c, &b, "name is required") {
			return
		}
		c.String(http.StatusOK, b.Name)
	})

	for in, want := range map[string]int{`{"name":"ada"}`: http.StatusOK, `{}`: http.StatusBadRequest, `{`: http.StatusBadRequest} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(in)))
		if w.Code != want {
			t.Fatalf("%s: status %d, want %d", in, w.Code, want)
		}
		if want == http.StatusBadRequest && !strings.Contains(w.Body.String(), "name is required") {
			t.Fatalf("%s: body %q", in, w.Body.String())
		}
	}
}

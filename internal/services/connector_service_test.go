package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/tbourn/llm-chat-backend/internal/crypto"
	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// newTokenServer emulates a provider token endpoint that accepts one code.
func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-123",
			"refresh_token": "rt-456",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"workspace_id":  "ws-1",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConnectorService(t *testing.T, tokenURL string) *ConnectorService {
	t.Helper()
	sealer, err := crypto.NewSealer("connector-test-secret")
	if err != nil {
		t.Fatal(err)
	}
	cfgs := ConnectorOAuthConfigs(OAuthApp{}, OAuthApp{ClientID: "nid", ClientSecret: "nsecret"}, "http://localhost/cb")
	cfgs[domain.ConnectorNotion].Endpoint = oauth2.Endpoint{
		AuthURL:   "https://auth.example/authorize",
		TokenURL:  tokenURL,
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &ConnectorService{DB: newTestDB(t), Sealer: sealer, OAuth: cfgs}
}

func TestConnector_OAuthConfigs(t *testing.T) {
	cfgs := ConnectorOAuthConfigs(OAuthApp{ClientID: "g", ClientSecret: "s"}, OAuthApp{ClientID: "n"}, "http://cb")
	if len(cfgs) != 3 {
		t.Fatalf("google registers three connectors, notion without secret none; got %d", len(cfgs))
	}
	if cfgs[domain.ConnectorGmail].Endpoint != GoogleEndpoint || cfgs[domain.ConnectorGmail].RedirectURL != "http://cb" {
		t.Fatalf("gmail config = %+v", cfgs[domain.ConnectorGmail])
	}
}

func TestConnector_ConnectCallbackDisconnect(t *testing.T) {
	srv := newTokenServer(t)
	s := newConnectorService(t, srv.URL)
	ctx := context.Background()

	raw, err := s.Connect(ctx, "u1", domain.ConnectorNotion)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	u, _ := url.Parse(raw)
	state := u.Query().Get("state")
	if state == "" || u.Query().Get("owner") != "user" || u.Query().Get("client_id") != "nid" {
		t.Fatalf("auth url = %s", raw)
	}

	st, _ := s.Status(ctx, "u1", domain.ConnectorNotion)
	if st.Connected || !st.Configured {
		t.Fatalf("pending connector status = %+v", st)
	}

	if _, err := s.Callback(ctx, "bogus", "good-code"); !errors.Is(err, ErrInvalidOAuthState) {
		t.Fatalf("want ErrInvalidOAuthState, got %v", err)
	}
	if _, err := s.Callback(ctx, state, "bad-code"); err == nil {
		t.Fatalf("bad code must fail")
	}

	c, err := s.Callback(ctx, state, "good-code")
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if !c.IsConnected || c.ConnectionID != "ws-1" || c.State != "" {
		t.Fatalf("connector = %+v", c)
	}
	if _, err := s.Callback(ctx, state, "good-code"); !errors.Is(err, ErrInvalidOAuthState) {
		t.Fatalf("state must be single use, got %v", err)
	}

	tok, err := s.Token(ctx, "u1", domain.ConnectorNotion)
	if err != nil || tok.AccessToken != "at-123" || tok.RefreshToken != "rt-456" {
		t.Fatalf("Token = %+v, %v", tok, err)
	}

	list, _ := s.List(ctx, "u1")
	if len(list) != len(domain.ConnectorTypes) {
		t.Fatalf("list = %+v", list)
	}
	for _, st := range list {
		if st.Connected != (st.Type == domain.ConnectorNotion) {
			t.Fatalf("status %+v", st)
		}
	}

	if err := s.Disconnect(ctx, "u1", domain.ConnectorNotion); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, err := s.Token(ctx, "u1", domain.ConnectorNotion); !errors.Is(err, ErrConnectorNotFound) {
		t.Fatalf("token after disconnect: %v", err)
	}
	if err := s.Disconnect(ctx, "u2", domain.ConnectorNotion); !errors.Is(err, ErrConnectorNotFound) {
		t.Fatalf("want ErrConnectorNotFound, got %v", err)
	}
}

func TestConnector_StateExpires(t *testing.T) {
	srv := newTokenServer(t)
	s := newConnectorService(t, srv.URL)
	ctx := context.Background()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return now }

	raw, err := s.Connect(ctx, "u1", domain.ConnectorNotion)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	u, _ := url.Parse(raw)
	state := u.Query().Get("state")

	now = now.Add(defaultOAuthStateTTL + time.Second)
	if _, err := s.Callback(ctx, state, "good-code"); !errors.Is(err, ErrInvalidOAuthState) {
		t.Fatalf("expired state: want ErrInvalidOAuthState, got %v", err)
	}

	// A fresh connect issues a new state that is accepted within the window.
	raw, err = s.Connect(ctx, "u1", domain.ConnectorNotion)
	if err != nil {
		t.Fatal(err)
	}
	u, _ = url.Parse(raw)
	now = now.Add(defaultOAuthStateTTL - time.Second)
	if c, err := s.Callback(ctx, u.Query().Get("state"), "good-code"); err != nil || !c.IsConnected {
		t.Fatalf("Callback within window: %+v err=%v", c, err)
	}
}

func TestConnector_Errors(t *testing.T) {
	s := newConnectorService(t, "http://unused")
	ctx := context.Background()

	if _, err := s.Connect(ctx, "u1", "slack"); !errors.Is(err, ErrUnknownConnector) {
		t.Fatalf("want ErrUnknownConnector, got %v", err)
	}
	if _, err := s.Connect(ctx, "u1", domain.ConnectorGmail); !errors.Is(err, ErrConnectorNotConfigured) {
		t.Fatalf("want ErrConnectorNotConfigured, got %v", err)
	}
	if _, err := s.Status(ctx, "u1", "slack"); !errors.Is(err, ErrUnknownConnector) {
		t.Fatalf("status: want ErrUnknownConnector, got %v", err)
	}
	s.Sealer = nil
	if _, err := s.Connect(ctx, "u1", domain.ConnectorNotion); !errors.Is(err, ErrEncryptionDisabled) {
		t.Fatalf("want ErrEncryptionDisabled, got %v", err)
	}
}

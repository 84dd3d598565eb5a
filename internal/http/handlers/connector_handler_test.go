package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// withGmail points the gmail connector at a local token endpoint answering
// with status and body.
func (e *testEnv) withGmail(status int, body string) {
	e.t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	e.t.Cleanup(srv.Close)
	e.svc.Connectors.OAuth = map[string]*oauth2.Config{
		domain.ConnectorGmail: {
			ClientID:     "cid",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/connectors/callback",
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/auth",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

func (e *testEnv) connectState(user, typ string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/connectors/"+typ+"/connect", user, nil)
	expectStatus(e.t, w, http.StatusOK)
	u, err := url.Parse(decode[ConnectResponse](e.t, w).AuthURL)
	if err != nil {
		e.t.Fatal(err)
	}
	state := u.Query().Get("state")
	if state == "" {
		e.t.Fatalf("auth url without state: %s", u)
	}
	return state
}

func TestConnectors_ListAndUnconfigured(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/connectors", "u1", nil)
	expectStatus(t, w, http.StatusOK)
	list := decode[ListConnectorsResponse](t, w)
	if len(list.Connectors) != len(domain.ConnectorTypes) {
		t.Fatalf("connectors = %+v", list.Connectors)
	}
	for _, c := range list.Connectors {
		if c.Configured || c.Connected {
			t.Fatalf("unexpected state %+v", c)
		}
	}

	expectCode(t, env.do(http.MethodPost, "/connectors/gmail/connect", "u1", nil), http.StatusServiceUnavailable, ErrCodeUnavailable)
	expectCode(t, env.do(http.MethodPost, "/connectors/fax/connect", "u1", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodGet, "/connectors/fax/status", "u1", nil), http.StatusBadRequest, ErrCodeBadRequest)
}

func TestConnectors_OAuthRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.withGmail(http.StatusOK, `{"access_token":"at","token_type":"Bearer","refresh_token":"rt","expires_in":3600}`)

	state := env.connectState("u1", domain.ConnectorGmail)

	expectCode(t, env.do(http.MethodGet, "/connectors/callback?state="+state, "", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodGet, "/connectors/callback?error=access_denied", "", nil), http.StatusBadRequest, ErrCodeBadRequest)
	expectCode(t, env.do(http.MethodGet, "/connectors/callback?state=forged&code=c", "", nil), http.StatusBadRequest, ErrCodeBadRequest)

	w := env.do(http.MethodGet, "/connectors/callback?state="+state+"&code=abc", "", nil)
	expectStatus(t, w, http.StatusOK)
	st := decode[services.ConnectorStatus](t, w)
	if !st.Connected || st.Type != domain.ConnectorGmail {
		t.Fatalf("status = %+v", st)
	}

	w = env.do(http.MethodGet, "/connectors/gmail/status", "u1", nil)
	expectStatus(t, w, http.StatusOK)
	if st := decode[services.ConnectorStatus](t, w); !st.Connected || !st.Configured {
		t.Fatalf("status = %+v", st)
	}
	w = env.do(http.MethodGet, "/connectors/gmail/status", "u2", nil)
	expectStatus(t, w, http.StatusOK)
	if st := decode[services.ConnectorStatus](t, w); st.Connected {
		t.Fatal("connection leaked to another user")
	}

	expectStatus(t, env.do(http.MethodDelete, "/connectors/gmail", "u1", nil), http.StatusNoContent)
	w = env.do(http.MethodGet, "/connectors/gmail/status", "u1", nil)
	if st := decode[services.ConnectorStatus](t, w); st.Connected {
		t.Fatalf("still connected: %+v", st)
	}
}

func TestConnectors_ExchangeFailureIs502(t *testing.T) {
	env := newTestEnv(t)
	env.withGmail(http.StatusBadRequest, `{"error":"invalid_grant"}`)

	state := env.connectState("u1", domain.ConnectorGmail)
	expectCode(t, env.do(http.MethodGet, "/connectors/callback?state="+state+"&code=bad", "", nil), http.StatusBadGateway, ErrCodeUpstream)
}

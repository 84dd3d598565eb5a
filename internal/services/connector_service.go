// Package services – ConnectorService
//
// ConnectorService drives the OAuth2 lifecycle of third-party connectors
// (Gmail, Google Calendar, Google Drive, Notion): it issues authorisation
// URLs bound to a random state, exchanges the callback code for a token,
// keeps the token sealed at rest and reports connection status.
package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"golang.org/x/oauth2"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/crypto"
	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OAuth endpoints of the connector providers.
var (
	GoogleEndpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.google.com/o/oauth2/auth",
		TokenURL:  "https://oauth2.googleapis.com/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	NotionEndpoint = oauth2.Endpoint{
		AuthURL:   "https://api.notion.com/v1/oauth/authorize",
		TokenURL:  "https://api.notion.com/v1/oauth/token",
		AuthStyle: oauth2.AuthStyleInHeader,
	}
)

var connectorScopes = map[string][]string{
	domain.ConnectorGmail:          {"https://www.googleapis.com/auth/gmail.readonly"},
	domain.ConnectorGoogleCalendar: {"https://www.googleapis.com/auth/calendar.readonly"},
	domain.ConnectorGoogleDrive:    {"https://www.googleapis.com/auth/drive.readonly"},
}

// OAuthApp is a client registration at a provider.
type OAuthApp struct {
	ClientID     string
	ClientSecret string
}

func (a OAuthApp) configured() bool { return a.ClientID != "" && a.ClientSecret != "" }

// ConnectorOAuthConfigs builds the per-connector OAuth configurations.
// Connectors whose provider has no registration are left out.
func ConnectorOAuthConfigs(google, notion OAuthApp, redirectURL string) map[string]*oauth2.Config {
	out := map[string]*oauth2.Config{}
	if google.configured() {
		for _, typ := range []string{domain.ConnectorGmail, domain.ConnectorGoogleCalendar, domain.ConnectorGoogleDrive} {
			out[typ] = &oauth2.Config{
				ClientID:     google.ClientID,
				ClientSecret: google.ClientSecret,
				Endpoint:     GoogleEndpoint,
				RedirectURL:  redirectURL,
				Scopes:       connectorScopes[typ],
			}
		}
	}
	if notion.configured() {
		out[domain.ConnectorNotion] = &oauth2.Config{
			ClientID:     notion.ClientID,
			ClientSecret: notion.ClientSecret,
			Endpoint:     NotionEndpoint,
			RedirectURL:  redirectURL,
		}
	}
	return out
}

// ConnectorService manages connector connections.
type ConnectorService struct {
	DB     *gorm.DB
	Sealer *crypto.Sealer
	OAuth  map[string]*oauth2.Config

	// HTTPClient is used for token exchanges; nil uses http.DefaultClient.
	HTTPClient *http.Client

	// StateTTL bounds how long a connect flow may take; 0 means 10 minutes.
	StateTTL time.Duration
	Now      func() time.Time
}

const defaultOAuthStateTTL = 10 * time.Minute

func (s *ConnectorService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ConnectorService) stateTTL() time.Duration {
	if s.StateTTL > 0 {
		return s.StateTTL
	}
	return defaultOAuthStateTTL
}

// ConnectorStatus is the caller-facing state of one connector type.
type ConnectorStatus struct {
	Type         string     `json:"type"`
	Configured   bool       `json:"configured"`
	Connected    bool       `json:"connected"`
	ConnectionID string     `json:"connection_id,omitempty"`
	ConnectedAt  *time.Time `json:"connected_at,omitempty"`
}

func (s *ConnectorService) config(typ string) (*oauth2.Config, error) {
	if !slices.Contains(domain.ConnectorTypes, typ) {
		return nil, ErrUnknownConnector
	}
	cfg, ok := s.OAuth[typ]
	if !ok {
		return nil, ErrConnectorNotConfigured
	}
	return cfg, nil
}

// Connect starts the OAuth flow for typ and returns the URL to send the
// user to. Starting again replaces any pending state.
func (s *ConnectorService) Connect(ctx context.Context, userID, typ string) (string, error) {
	tr := otel.Tracer("services/ConnectorService")
	ctx, span := tr.Start(ctx, "Connect", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("connector.type", typ),
	))
	defer span.End()

	cfg, err := s.config(typ)
	if err != nil {
		return "", err
	}
	if s.Sealer == nil {
		return "", ErrEncryptionDisabled
	}
	state, err := newState()
	if err != nil {
		return "", err
	}
	if err := repo.SaveConnectorState(ctx, s.DB, userID, typ, state, s.now()); err != nil {
		return "", err
	}

	var opts []oauth2.AuthCodeOption
	if typ == domain.ConnectorNotion {
		opts = append(opts, oauth2.SetAuthURLParam("owner", "user"))
	} else {
		opts = append(opts, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return cfg.AuthCodeURL(state, opts...), nil
}

// Callback completes the flow identified by state: the code is exchanged
// for a token, which is sealed and stored, and the connector is marked
// connected.
func (s *ConnectorService) Callback(ctx context.Context, state, code string) (*domain.Connector, error) {
	tr := otel.Tracer("services/ConnectorService")
	ctx, span := tr.Start(ctx, "Callback")
	defer span.End()

	c, err := repo.GetConnectorByState(ctx, s.DB, state, s.now().Add(-s.stateTTL()))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidOAuthState
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("connector.type", c.Type), attribute.String("user.id", c.UserID))
	cfg, err := s.config(c.Type)
	if err != nil {
		return nil, err
	}
	if s.Sealer == nil {
		return nil, ErrEncryptionDisabled
	}

	if s.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.HTTPClient)
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth exchange: %w", err)
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, err
	}
	sealed, err := s.Sealer.Seal(raw)
	if err != nil {
		return nil, err
	}

	connID := c.ID
	for _, k := range []string{"workspace_id", "bot_id"} {
		if v, ok := tok.Extra(k).(string); ok && v != "" {
			connID = v
			break
		}
	}
	if err := repo.MarkConnectorConnected(ctx, s.DB, c.ID, connID, sealed, s.now()); err != nil {
		return nil, err
	}
	return repo.GetConnector(ctx, s.DB, c.UserID, c.Type)
}

// Token returns the stored token of a connected connector.
func (s *ConnectorService) Token(ctx context.Context, userID, typ string) (*oauth2.Token, error) {
	c, err := repo.GetConnector(ctx, s.DB, userID, typ)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrConnectorNotFound
		}
		return nil, err
	}
	if !c.IsConnected || len(c.SealedToken) == 0 {
		return nil, ErrConnectorNotFound
	}
	if s.Sealer == nil {
		return nil, ErrEncryptionDisabled
	}
	raw, err := s.Sealer.Open(c.SealedToken)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Disconnect forgets the token of typ.
func (s *ConnectorService) Disconnect(ctx context.Context, userID, typ string) error {
	if !slices.Contains(domain.ConnectorTypes, typ) {
		return ErrUnknownConnector
	}
	if err := repo.DisconnectConnector(ctx, s.DB, userID, typ); err != nil {
		if isNotFound(err) {
			return ErrConnectorNotFound
		}
		return err
	}
	return nil
}

// Status reports the state of one connector type.
func (s *ConnectorService) Status(ctx context.Context, userID, typ string) (*ConnectorStatus, error) {
	if !slices.Contains(domain.ConnectorTypes, typ) {
		return nil, ErrUnknownConnector
	}
	st := s.status(typ, nil)
	c, err := repo.GetConnector(ctx, s.DB, userID, typ)
	switch {
	case err == nil:
		st = s.status(typ, c)
	case !isNotFound(err):
		return nil, err
	}
	return &st, nil
}

// List reports every connector type, connected or not.
func (s *ConnectorService) List(ctx context.Context, userID string) ([]ConnectorStatus, error) {
	rows, err := repo.ListConnectors(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]*domain.Connector, len(rows))
	for i := range rows {
		byType[rows[i].Type] = &rows[i]
	}
	out := make([]ConnectorStatus, 0, len(domain.ConnectorTypes))
	for _, typ := range domain.ConnectorTypes {
		out = append(out, s.status(typ, byType[typ]))
	}
	return out, nil
}

func (s *ConnectorService) status(typ string, c *domain.Connector) ConnectorStatus {
	_, configured := s.OAuth[typ]
	st := ConnectorStatus{Type: typ, Configured: configured}
	if c != nil && c.IsConnected {
		st.Connected = true
		st.ConnectionID = c.ConnectionID
		st.ConnectedAt = c.ConnectedAt
	}
	return st
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

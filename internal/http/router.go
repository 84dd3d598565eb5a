// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, authentication, CSRF, idempotency, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/cache"
	"github.com/tbourn/llm-chat-backend/internal/config"
	"github.com/tbourn/llm-chat-backend/internal/crypto"
	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/http/handlers"
	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/services"
	"github.com/tbourn/llm-chat-backend/internal/storage"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type chatRepoShim struct{}

// CreateChat proxies repo.CreateChat.
func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}

// ListChats proxies repo.ListChats.
func (chatRepoShim) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}

// GetChat proxies repo.GetChat.
func (chatRepoShim) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}

// UpdateChatTitle proxies repo.UpdateChatTitle.
func (chatRepoShim) UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateChatTitle(ctx, db, id, userID, title)
}

// CountChats proxies repo.CountChats (pagination support).
func (chatRepoShim) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}

// ListChatsPage proxies repo.ListChatsPage (pagination support).
func (chatRepoShim) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

// Deps are the infrastructure handles the services are built on. Cache and
// Sealer may be nil (no completion cache, no BYOK or connectors).
type Deps struct {
	DB      *gorm.DB
	LLM     llm.Client
	Keys    services.SystemKeys
	Models  *llm.Registry
	Cache   cache.Cache
	Storage storage.Storage
	Sealer  *crypto.Sealer
}

// NewServices builds every application service from cfg and d.
func NewServices(cfg config.Config, d Deps) handlers.Services {
	db := d.DB

	usage := &services.UsageService{DB: db, Limits: services.Limits{
		AnonDaily:      cfg.Usage.AnonDaily,
		AuthDaily:      cfg.Usage.AuthDaily,
		AuthMonthly:    cfg.Usage.AuthMonthly,
		PremiumDaily:   cfg.Usage.PremiumDaily,
		PremiumMonthly: cfg.Usage.PremiumMonthly,
		PremiumCredits: cfg.Usage.PremiumCredits,
	}}

	chatSvc := services.NewChatService(db, chatRepoShim{})
	chatSvc.Storage = d.Storage
	chatSvc.Models = d.Models

	msgSvc := &services.MessageService{
		DB:             db,
		MaxPromptRunes: cfg.MaxPromptRunes,
		Titles:         services.Titles{Locale: language.English},
	}

	apiKeys := &services.APIKeyService{DB: db, Sealer: d.Sealer, Providers: d.Models.Providers()}

	completions := &services.CompletionService{
		DB:        db,
		LLM:       d.LLM,
		Keys:      d.Keys,
		Models:    d.Models,
		Usage:     usage,
		UserKeys:  apiKeys,
		Messages:  msgSvc,
		Cache:     d.Cache,
		CacheTTL:  cfg.LLM.CacheTTL,
		MaxTokens: cfg.LLM.MaxTokens,
	}

	connectors := &services.ConnectorService{
		DB:     db,
		Sealer: d.Sealer,
		OAuth: services.ConnectorOAuthConfigs(
			services.OAuthApp{ClientID: cfg.Connectors.Google.ClientID, ClientSecret: cfg.Connectors.Google.ClientSecret},
			services.OAuthApp{ClientID: cfg.Connectors.Notion.ClientID, ClientSecret: cfg.Connectors.Notion.ClientSecret},
			cfg.Connectors.RedirectURL,
		),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}

	var auth *services.AuthService
	if cfg.Auth.JWTSecret != "" {
		auth = &services.AuthService{
			Secret:  []byte(cfg.Auth.JWTSecret),
			Issuer:  cfg.Auth.JWTIssuer,
			AnonTTL: cfg.Auth.AnonTokenTTL,
		}
	}

	var csrf *middleware.CSRF
	if cfg.Auth.CSRFSecret != "" {
		csrf = middleware.NewCSRF(cfg.Auth.CSRFSecret, cfg.Auth.CSRFEnabled,
			joinPath(cfg.APIBasePath, "/billing/webhook"),
			joinPath(cfg.APIBasePath, "/connectors/callback"),
		)
	}

	return handlers.Services{
		DB:          db,
		Chats:       chatSvc,
		Messages:    msgSvc,
		Feedback:    &services.FeedbackService{DB: db},
		Completions: completions,
		Usage:       usage,
		Attachments: &services.AttachmentService{
			DB:       db,
			Storage:  d.Storage,
			MaxBytes: cfg.Storage.MaxUpload,
			URLTTL:   cfg.Storage.SignedURLTTL,
		},
		Shares:     &services.ShareService{DB: db},
		Connectors: connectors,
		Tasks: &services.TaskService{
			DB:             db,
			Models:         d.Models,
			Completions:    completions,
			MaxPromptRunes: cfg.MaxPromptRunes,
		},
		APIKeys: apiKeys,
		Account: &services.AccountService{DB: db, Usage: usage, Models: d.Models, Storage: d.Storage},
		Billing: &services.BillingService{DB: db, Secret: []byte(cfg.BillingWebhookSecret)},
		Auth:    auth,
		Models:  d.Models,
		CSRF:    csrf,

		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), CORS and security
// headers, health, metrics and docs endpoints, and then mounts the versioned
// API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. ContextLogger: request-scoped logger for handlers and services
//  4. RedactingLogger: structured access logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter (larger cap on uploads)
//  7. Metrics
//  8. CORS and Security headers
//  9. gzip (never on the event stream)
//
// Inside the API group:
//  1. Authenticate: bearer token, or X-User-ID in development
//  2. CSRF (when enabled)
//  3. Idempotency validator (before rate limiter to allow bypass on replay)
//  4. Rate limiter (per user/IP, bypass on replay)
//  5. RequireIdentity on every non-public route
func RegisterRoutes(r *gin.Engine, svc handlers.Services, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath // e.g. "/api/v1"

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())
	r.Use(middleware.ContextLogger())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Body size limits: 1 MiB, uploads get the attachment cap plus
	// multipart framing.
	r.Use(limitBody(1<<20, map[string]int64{
		joinPath(apiBase, "/chats/:id/attachments"): cfg.Storage.MaxUpload + 64<<10,
	}))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		middleware.HeaderUserID,
		middleware.HeaderIdempotencyKey,
		middleware.HeaderCSRFToken,
		handlers.HeaderSignature,
		"If-None-Match",
	}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", handlers.HeaderIdempotencyReplayed}
	methods := []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     methods,
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true, // CSRF cookie
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:    cfg.Security.EnableHSTS,
		HSTSMaxAge:    cfg.Security.HSTSMaxAge,
		NoStore:       false,
		EnablePolicy:  true,
		ExposeHeaders: []string{"ETag", "Retry-After", handlers.HeaderIdempotencyReplayed},
		CSPExempt:     []string{"/swagger/"},
	}))

	// 8) Compression; the event stream must reach the client unbuffered.
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPathsRegexs([]string{`/completions/stream$`, `/attachments/[^/]+/content$`}),
	))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	h := handlers.New(svc)

	// Public API
	api := groupWithPrefix(r, apiBase)
	api.Use(middleware.Authenticate(middleware.AuthOptions{
		Verify:         verifier(svc.Auth),
		AllowDevHeader: cfg.Auth.AllowDevHeader,
	}))
	if svc.CSRF != nil {
		api.Use(svc.CSRF.Handler())
	}
	api.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, s middleware.IdempotencyScope, now time.Time) (string, bool, error) {
			rec, err := repo.FindReplay(ctx, svc.DB, domain.ReplayKey(s), now)
			if err != nil {
				if isNotFound(err) {
					return "", false, nil
				}
				return "", false, err
			}
			return rec.ResultID, true, nil
		},
	))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	api.Use(rl.Handler())
	{
		// Session and catalogue
		api.GET("/csrf", h.IssueCSRF)
		api.POST("/auth/anonymous", h.AnonymousSession)
		api.GET("/models", h.ListModels)

		// Public views and provider callbacks
		api.GET("/shared/:id", h.GetSharedChat)
		api.GET("/connectors/callback", h.ConnectorCallback)
		api.POST("/billing/webhook", h.BillingWebhook)
	}

	a := api.Group("", middleware.RequireIdentity())
	{
		// Chats
		a.POST("/chats", h.CreateChat)
		a.GET("/chats", h.ListChats)
		a.GET("/chats/search", h.SearchChats)
		a.GET("/chats/:id", h.GetChat)
		a.PATCH("/chats/:id", h.PatchChat)
		a.DELETE("/chats/:id", h.DeleteChat)
		a.PUT("/chats/:id/title", h.UpdateChatTitle)
		a.POST("/chats/:id/branch", h.BranchChat)

		// Messages
		a.GET("/chats/:id/messages", h.ListMessages)
		a.POST("/chats/:id/messages", h.PostMessage)
		a.GET("/chats/:id/thread", h.GetThread)
		a.DELETE("/chats/:id/messages/:mid", h.DeleteMessage)

		// Completions
		a.POST("/chats/:id/completions", h.Complete)
		a.POST("/chats/:id/completions/stream", h.StreamCompletion)
		a.POST("/chats/:id/messages/:mid/regenerate", h.Regenerate)

		// Feedback
		a.POST("/messages/:id/feedback", h.LeaveFeedback)
		a.DELETE("/messages/:id/feedback", h.RetractFeedback)

		// Attachments
		a.POST("/chats/:id/attachments", h.UploadAttachment)
		a.GET("/chats/:id/attachments", h.ListAttachments)
		a.GET("/attachments/:id", h.GetAttachment)
		a.GET("/attachments/:id/content", h.DownloadAttachment)
		a.DELETE("/attachments/:id", h.DeleteAttachment)

		// Sharing
		a.POST("/chats/:id/share", h.ShareChat)
		a.DELETE("/chats/:id/share", h.UnshareChat)

		// Connectors
		a.GET("/connectors", h.ListConnectors)
		a.POST("/connectors/:type/connect", h.Connect)
		a.GET("/connectors/:type/status", h.ConnectorStatus)
		a.DELETE("/connectors/:type", h.Disconnect)

		// Scheduled tasks
		a.GET("/tasks", h.ListTasks)
		a.POST("/tasks", h.CreateTask)
		a.GET("/tasks/:id", h.GetTask)
		a.PUT("/tasks/:id", h.UpdateTask)
		a.DELETE("/tasks/:id", h.DeleteTask)
		a.GET("/tasks/:id/history", h.TaskHistory)

		// Account and provider keys
		a.GET("/account", h.GetAccount)
		a.PATCH("/account", h.UpdatePreferences)
		a.DELETE("/account", h.DeleteAccount)
		a.GET("/api-keys", h.ListAPIKeys)
		a.PUT("/api-keys/:provider", h.PutAPIKey)
		a.DELETE("/api-keys/:provider", h.DeleteAPIKey)
	}
}

// verifier adapts AuthService to the middleware. Without a service every
// bearer token is rejected.
func verifier(auth *services.AuthService) middleware.TokenVerifier {
	if !auth.Enabled() {
		return nil
	}
	return func(tok string) (middleware.Principal, error) {
		who, err := auth.Verify(tok)
		if err != nil {
			return middleware.Principal{}, err
		}
		return middleware.Principal{UserID: who.UserID, Email: who.Email, Anonymous: who.Anonymous}, nil
	}
}

// limitBody returns a Gin middleware that caps the request body size to
// maxBytes using http.MaxBytesReader; routes listed in perRoute (by full
// path) get their own cap. Requests exceeding the cap will cause downstream
// body reads to error.
func limitBody(maxBytes int64, perRoute map[string]int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := maxBytes
		if v, ok := perRoute[c.FullPath()]; ok {
			n = v
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

// joinPath prefixes route with the API base path.
func joinPath(base, route string) string {
	if base == "" || base == "/" {
		return route
	}
	return base + route
}

func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/llm-chat-backend/internal/crypto"
	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/services"
	"github.com/tbourn/llm-chat-backend/internal/storage"
)

// ---------- fake provider ----------

type fakeLLM struct {
	mu     sync.Mutex
	reply  string
	chunks []string
	err    error
	// failAfter makes Stream fail once this many chunks were sent (0 = never).
	failAfter int
	calls     int
}

func (f *fakeLLM) Complete(context.Context, llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Usage: llm.Usage{InputTokens: 5, OutputTokens: 3}}, nil
}

func (f *fakeLLM) Stream(_ context.Context, _ llm.Request, onDelta func(string) error) (*llm.Response, error) {
	f.mu.Lock()
	f.calls++
	chunks, failAfter, ferr := f.chunks, f.failAfter, f.err
	f.mu.Unlock()
	if ferr != nil && failAfter == 0 {
		return nil, ferr
	}
	var all string
	for i, c := range chunks {
		if failAfter > 0 && i == failAfter {
			return nil, ferr
		}
		if err := onDelta(c); err != nil {
			return nil, err
		}
		all += c
	}
	return &llm.Response{Content: all}, nil
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type systemKeys map[string]bool

func (k systemKeys) HasSystemKey(p string) bool { return k[p] }

// ---------- environment ----------

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	llm    *fakeLLM
	svc    Services
	router *gin.Engine
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type chatRepo struct{}

func (chatRepo) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}
func (chatRepo) ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChats(ctx, db, userID)
}
func (chatRepo) GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChat(ctx, db, id, userID)
}
func (chatRepo) UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return repo.UpdateChatTitle(ctx, db, id, userID, title)
}
func (chatRepo) CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountChats(ctx, db, userID)
}
func (chatRepo) ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	return repo.ListChatsPage(ctx, db, userID, offset, limit)
}

const testSecret = "handlers-test-secret-0123456789abcdef"

// newTestEnv wires real services over an in-memory database, a local
// object store and a fake provider. Callers identify with X-User-ID.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	store, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	sealer, err := crypto.NewSealer(testSecret)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	models := llm.NewRegistry([]llm.Model{
		{ID: "std", Name: "Standard", Provider: llm.ProviderOpenAI, Upstream: "std"},
		{ID: "pro", Name: "Pro", Provider: llm.ProviderOpenAI, Upstream: "pro", Premium: true},
	}, "std")
	fl := &fakeLLM{reply: "hi there", chunks: []string{"hi", " there"}}

	usage := &services.UsageService{DB: db, Limits: services.Limits{
		AnonDaily: 1, AuthDaily: 3, AuthMonthly: 100, PremiumDaily: 100, PremiumMonthly: 1000, PremiumCredits: 10,
	}}
	chats := services.NewChatService(db, chatRepo{})
	chats.Storage = store
	chats.Models = models
	msgs := &services.MessageService{DB: db, MaxPromptRunes: 2000}
	apiKeys := &services.APIKeyService{DB: db, Sealer: sealer, Providers: models.Providers()}
	completions := &services.CompletionService{
		DB:       db,
		LLM:      fl,
		Keys:     systemKeys{llm.ProviderOpenAI: true},
		Models:   models,
		Usage:    usage,
		UserKeys: apiKeys,
		Messages: msgs,
	}

	svc := Services{
		DB:          db,
		Chats:       chats,
		Messages:    msgs,
		Feedback:    &services.FeedbackService{DB: db},
		Completions: completions,
		Usage:       usage,
		Attachments: &services.AttachmentService{DB: db, Storage: store, MaxBytes: 1 << 10},
		Shares:      &services.ShareService{DB: db},
		Connectors:  &services.ConnectorService{DB: db, Sealer: sealer},
		Tasks:       &services.TaskService{DB: db, Models: models, Completions: completions},
		APIKeys:     apiKeys,
		Account:     &services.AccountService{DB: db, Usage: usage, Models: models, Storage: store},
		Billing:     &services.BillingService{DB: db, Secret: []byte(testSecret)},
		Auth:        &services.AuthService{Secret: []byte(testSecret)},
		Models:      models,
		CSRF:        middleware.NewCSRF(testSecret, false),
	}
	env := &testEnv{t: t, db: db, llm: fl, svc: svc}
	env.router = env.buildRouter()
	return env
}

// buildRouter mounts every handler the way the server does, minus the
// ambient middleware the handlers do not depend on.
func (e *testEnv) buildRouter() *gin.Engine {
	h := New(e.svc)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ContextLogger())
	r.Use(middleware.Authenticate(middleware.AuthOptions{
		Verify: func(tok string) (middleware.Principal, error) {
			who, err := e.svc.Auth.Verify(tok)
			return middleware.Principal{UserID: who.UserID, Email: who.Email, Anonymous: who.Anonymous}, err
		},
		AllowDevHeader: true,
	}))
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{},
		func(ctx context.Context, s middleware.IdempotencyScope, now time.Time) (string, bool, error) {
			rec, err := repo.FindReplay(ctx, e.db, domain.ReplayKey(s), now)
			if err != nil {
				return "", false, nil
			}
			return rec.ResultID, true, nil
		}))

	r.GET("/csrf", h.IssueCSRF)
	r.POST("/auth/anonymous", h.AnonymousSession)
	r.GET("/models", h.ListModels)
	r.GET("/shared/:id", h.GetSharedChat)
	r.GET("/connectors/callback", h.ConnectorCallback)
	r.POST("/billing/webhook", h.BillingWebhook)

	a := r.Group("", middleware.RequireIdentity())
	a.POST("/chats", h.CreateChat)
	a.GET("/chats", h.ListChats)
	a.GET("/chats/search", h.SearchChats)
	a.GET("/chats/:id", h.GetChat)
	a.PATCH("/chats/:id", h.PatchChat)
	a.DELETE("/chats/:id", h.DeleteChat)
	a.PUT("/chats/:id/title", h.UpdateChatTitle)
	a.POST("/chats/:id/branch", h.BranchChat)
	a.GET("/chats/:id/messages", h.ListMessages)
	a.POST("/chats/:id/messages", h.PostMessage)
	a.GET("/chats/:id/thread", h.GetThread)
	a.DELETE("/chats/:id/messages/:mid", h.DeleteMessage)
	a.POST("/chats/:id/messages/:mid/regenerate", h.Regenerate)
	a.POST("/chats/:id/completions", h.Complete)
	a.POST("/chats/:id/completions/stream", h.StreamCompletion)
	a.POST("/messages/:id/feedback", h.LeaveFeedback)
	a.DELETE("/messages/:id/feedback", h.RetractFeedback)
	a.POST("/chats/:id/attachments", h.UploadAttachment)
	a.GET("/chats/:id/attachments", h.ListAttachments)
	a.GET("/attachments/:id", h.GetAttachment)
	a.GET("/attachments/:id/content", h.DownloadAttachment)
	a.DELETE("/attachments/:id", h.DeleteAttachment)
	a.POST("/chats/:id/share", h.ShareChat)
	a.DELETE("/chats/:id/share", h.UnshareChat)
	a.GET("/connectors", h.ListConnectors)
	a.POST("/connectors/:type/connect", h.Connect)
	a.GET("/connectors/:type/status", h.ConnectorStatus)
	a.DELETE("/connectors/:type", h.Disconnect)
	a.GET("/tasks", h.ListTasks)
	a.POST("/tasks", h.CreateTask)
	a.GET("/tasks/:id", h.GetTask)
	a.PUT("/tasks/:id", h.UpdateTask)
	a.DELETE("/tasks/:id", h.DeleteTask)
	a.GET("/tasks/:id/history", h.TaskHistory)
	a.GET("/api-keys", h.ListAPIKeys)
	a.PUT("/api-keys/:provider", h.PutAPIKey)
	a.DELETE("/api-keys/:provider", h.DeleteAPIKey)
	a.GET("/account", h.GetAccount)
	a.PATCH("/account", h.UpdatePreferences)
	a.DELETE("/account", h.DeleteAccount)
	return r
}

// do sends a request as user (empty = anonymous caller) and returns the recorder.
func (e *testEnv) do(method, path, user string, body any, hdr ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	case []byte:
		rd = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set(middleware.HeaderUserID, user)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createChat(user string) *domain.Chat {
	e.t.Helper()
	ch, err := repo.CreateChat(context.Background(), e.db, user, "New chat")
	if err != nil {
		e.t.Fatalf("seed chat: %v", err)
	}
	return ch
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status=%d want %d body=%s", w.Code, want, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	if er := decode[ErrorResponse](t, w); er.Code != code {
		t.Fatalf("code=%q want %q", er.Code, code)
	}
}

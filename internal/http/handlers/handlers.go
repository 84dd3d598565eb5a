// Handler wiring shared by every endpoint file.
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results (and typed service errors) into HTTP responses.

package handlers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/llm"
	"github.com/tbourn/llm-chat-backend/internal/services"
	"github.com/tbourn/llm-chat-backend/internal/utils"
)

// Services is the set of application services the handlers delegate to.
// A nil optional service turns its endpoints into 503 responses.
type Services struct {
	DB *gorm.DB

	Chats       *services.ChatService
	Messages    *services.MessageService
	Feedback    *services.FeedbackService
	Completions *services.CompletionService
	Usage       *services.UsageService
	Attachments *services.AttachmentService
	Shares      *services.ShareService
	Connectors  *services.ConnectorService
	Tasks       *services.TaskService
	APIKeys     *services.APIKeyService
	Account     *services.AccountService
	Billing     *services.BillingService
	Auth        *services.AuthService
	Models      *llm.Registry

	// CSRF issues double-submit tokens; nil disables GET /csrf.
	CSRF *middleware.CSRF
	// IdempotencyTTL is how long a stored Idempotency-Key result replays.
	IdempotencyTTL time.Duration
}

// Handlers groups every HTTP endpoint of the API.
type Handlers struct {
	svc Services
}

// New constructs and returns a Handlers instance bound to the given services.
func New(s Services) *Handlers {
	if s.IdempotencyTTL <= 0 {
		s.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{svc: s}
}

// identity returns the caller resolved by the auth middleware. Routes using
// it sit behind middleware.RequireIdentity.
func identity(c *gin.Context) services.Identity {
	p, _ := middleware.PrincipalFrom(c)
	return services.Identity{UserID: p.UserID, Email: p.Email, Anonymous: p.Anonymous}
}

// uuidParam reads a UUID path parameter, answering 400 when malformed.
func uuidParam(c *gin.Context, name, what string) (string, bool) {
	v := c.Param(name)
	if _, err := uuid.Parse(v); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, what+" id must be a UUID")
		return "", false
	}
	return v, true
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination reads page and page_size, defaulting to the first page of
// 20 and capping page_size at 100.
func clampPagination(c *gin.Context) (page, pageSize int) {
	page = utils.IntInRange(c.Query("page"), 1, 1, math.MaxInt32)
	pageSize = utils.IntInRange(c.Query("page_size"), 20, 1, 100)
	return page, pageSize
}

// unavailable answers 503 for endpoints whose backing service is not wired.
func unavailable(c *gin.Context, what string) {
	fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, what+" is not configured")
}

// trimmed returns a trimmed copy of an optional string.
func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	return &s
}

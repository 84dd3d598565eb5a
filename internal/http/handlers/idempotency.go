package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// HeaderIdempotencyReplayed marks a response served from a stored result.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

// replayedMessage returns the message recorded for the request's
// Idempotency-Key, if the validator found one. A record whose message has
// since been deleted is treated as absent so the request runs again.
func (h *Handlers) replayedMessage(c *gin.Context) (*domain.Message, bool) {
	id, found := middleware.ReplayOf(c)
	if !found {
		return nil, false
	}
	m, err := repo.GetMessage(h.svc.DB.WithContext(c.Request.Context()), id)
	if err != nil {
		return nil, false
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	return m, true
}

// replayedCompletion rebuilds the completion recorded for the request's
// idempotency key in the shape of the original response.
func (h *Handlers) replayedCompletion(c *gin.Context, chatID string) (*services.CompletionResult, bool) {
	id, found := middleware.ReplayOf(c)
	if !found {
		return nil, false
	}
	res, err := h.svc.Completions.Replay(c.Request.Context(), identity(c), chatID, id)
	if err != nil {
		return nil, false
	}
	c.Header(HeaderIdempotencyReplayed, "true")
	return res, true
}

// remember stores the result of a keyed request (best effort). A concurrent
// duplicate that lost the race is not an error.
func (h *Handlers) remember(c *gin.Context, messageID string, status int) {
	scope, found := middleware.IdempotencyScopeFrom(c)
	if !found {
		return
	}
	_, err := repo.RecordReplay(c.Request.Context(), h.svc.DB, domain.ReplayKey(scope), messageID, status, h.svc.IdempotencyTTL)
	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		middleware.LoggerFrom(c).Warn().Err(err).Str("route", scope.Route).Msg("idempotency store failed")
	}
}

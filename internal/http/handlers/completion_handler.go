// Completion HTTP handlers.
//
//   - POST /chats/{id}/completions                     (store prompt, answer, return both)
//   - POST /chats/{id}/completions/stream              (same, streamed as server-sent events)
//   - POST /chats/{id}/messages/{mid}/regenerate       (new sibling reply)
//
// The stream emits `delta` events carrying {"content": "..."} chunks, then a
// single `done` event with the stored result. A failure after the first
// chunk is reported as an `error` event carrying the error envelope; earlier
// failures are plain JSON error responses.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/http/middleware"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// CompletionRequest is one user turn sent for an answer.
type CompletionRequest struct {
	// Content is the user prompt.
	Content string `json:"content" example:"Summarise our plan in three bullets"`
	// Parts optionally carries structured content (files, text).
	Parts []domain.Part `json:"parts,omitempty"`
	// ParentID attaches the prompt under an explicit parent; defaults to the latest message.
	ParentID *string `json:"parent_id,omitempty" binding:"omitempty,uuid"`
	// Model overrides the chat's model for this turn.
	Model string `json:"model,omitempty" example:"gpt-4o-mini"`
}

// RegenerateRequest optionally picks a different model for the new reply.
type RegenerateRequest struct {
	Model string `json:"model,omitempty" example:"gpt-4o"`
}

// StreamDelta is the payload of a `delta` event.
type StreamDelta struct {
	Content string `json:"content"`
}

func (r CompletionRequest) toService() (services.CompletionRequest, bool) {
	content := sanitizeContent(r.Content)
	return services.CompletionRequest{
		Content:  content,
		Parts:    r.Parts,
		ParentID: r.ParentID,
		Model:    strings.TrimSpace(r.Model),
	}, content != ""
}

// bindCompletion validates the chat id and body shared by both completion routes.
func bindCompletion(c *gin.Context) (string, services.CompletionRequest, bool) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return "", services.CompletionRequest{}, false
	}
	var req CompletionRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return "", services.CompletionRequest{}, false
	}
	creq, nonEmpty := req.toService()
	if !nonEmpty {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return "", services.CompletionRequest{}, false
	}
	return chatID, creq, true
}

// Complete godoc
// @ID          createCompletion
// @Summary     Send a message and get the assistant reply
// @Description Stores the user message, answers it with the resolved model and stores the reply.
// @Description Counts against the caller's quota unless their own provider key is used.
// @Description Supports idempotency via the Idempotency-Key header: a repeat returns the stored
// @Description messages and chat with the caller's current usage.
// @Tags        Completions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"
// @Param       id               path    string  true  "Chat ID (UUID)"  format(uuid)
// @Param       body             body    handlers.CompletionRequest  true  "User turn"
//
// @Success     200  {object}  services.CompletionResult
// @Header      429  {integer} Retry-After "Seconds until the limit resets"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "PREMIUM_REQUIRED"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Failure     429  {object}  handlers.ErrorResponse  "DAILY_LIMIT_REACHED, MONTHLY_LIMIT_REACHED or PREMIUM_LIMIT_REACHED"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Failure     503  {object}  handlers.ErrorResponse  "No key for the model's provider"
// @Router      /chats/{id}/completions [post]
func (h *Handlers) Complete(c *gin.Context) {
	if h.svc.Completions == nil {
		unavailable(c, "completions")
		return
	}
	chatID, creq, valid := bindCompletion(c)
	if !valid {
		return
	}

	if prev, found := h.replayedCompletion(c, chatID); found {
		ok(c, http.StatusOK, prev)
		return
	}

	res, err := h.svc.Completions.Complete(c.Request.Context(), identity(c), chatID, creq)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	h.remember(c, res.Message.ID, http.StatusOK)
	ok(c, http.StatusOK, res)
}

// StreamCompletion godoc
// @ID          streamCompletion
// @Summary     Send a message and stream the assistant reply
// @Description Server-sent events: `delta` ({"content"}) per chunk, then `done` with the stored
// @Description result, or `error` with the error envelope if the provider fails mid-stream.
// @Tags        Completions
// @Accept      json
// @Produce     text/event-stream
// @Security    BearerAuth
//
// @Param       id    path  string                        true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.CompletionRequest    true  "User turn"
//
// @Success     200  {string}  string  "event stream"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "PREMIUM_REQUIRED"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Usage limit reached"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Router      /chats/{id}/completions/stream [post]
func (h *Handlers) StreamCompletion(c *gin.Context) {
	if h.svc.Completions == nil {
		unavailable(c, "completions")
		return
	}
	chatID, creq, valid := bindCompletion(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()

	started := false
	start := func() {
		if started {
			return
		}
		started = true
		hd := c.Writer.Header()
		hd.Set("Content-Type", "text/event-stream")
		hd.Set("Cache-Control", "no-cache")
		hd.Set("Connection", "keep-alive")
		hd.Set("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)
	}

	res, err := h.svc.Completions.Stream(ctx, identity(c), chatID, creq, func(delta string) error {
		start()
		c.SSEvent("delta", StreamDelta{Content: delta})
		c.Writer.Flush()
		return ctx.Err()
	})
	if err != nil {
		if !started {
			respondError(c, err, ErrCodeInternal)
			return
		}
		ae := classify(err, ErrCodeInternal)
		if ae.internal || ctx.Err() != nil {
			_ = c.Error(err)
		}
		middleware.LoggerFrom(c).Warn().Err(err).Str("code", ae.code).Msg("stream aborted")
		c.SSEvent("error", ErrorResponse{
			RequestID: c.Writer.Header().Get("X-Request-ID"),
			Code:      ae.code,
			Message:   ae.message,
		})
		c.Writer.Flush()
		return
	}
	start()
	c.SSEvent("done", res)
	c.Writer.Flush()
}

// Regenerate godoc
// @ID          regenerateMessage
// @Summary     Regenerate a reply
// @Description Answers the user message again (mid may be the prompt or one of its replies).
// @Description The new reply is added as a sibling; earlier replies are kept.
// @Tags        Completions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                        true   "Chat ID (UUID)"     format(uuid)
// @Param       mid   path  string                        true   "Message ID (UUID)"  format(uuid)
// @Param       body  body  handlers.RegenerateRequest    false  "Model override"
//
// @Success     201  {object}  services.CompletionResult
// @Failure     400  {object}  handlers.ErrorResponse  "Not a regenerable message"
// @Failure     404  {object}  handlers.ErrorResponse  "Chat or message not found"
// @Failure     429  {object}  handlers.ErrorResponse  "Usage limit reached"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider error"
// @Router      /chats/{id}/messages/{mid}/regenerate [post]
func (h *Handlers) Regenerate(c *gin.Context) {
	if h.svc.Completions == nil {
		unavailable(c, "completions")
		return
	}
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	msgID, valid := uuidParam(c, "mid", "message")
	if !valid {
		return
	}
	var req RegenerateRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, "invalid JSON body") {
			return
		}
	}

	if prev, found := h.replayedCompletion(c, chatID); found {
		prev.Chat = nil
		ok(c, http.StatusOK, prev)
		return
	}

	res, err := h.svc.Completions.Regenerate(c.Request.Context(), identity(c), chatID, msgID, strings.TrimSpace(req.Model))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	h.remember(c, res.Message.ID, http.StatusCreated)
	ok(c, http.StatusCreated, res)
}

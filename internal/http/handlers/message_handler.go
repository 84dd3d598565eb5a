// Message resources: append a user turn without a reply, page through a
// chat, read one thread and delete a subtree. Appends honour
// Idempotency-Key; a replay returns the recorded message with
// Idempotency-Replayed: true.
package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// PostMessageRequest is the body of POST /chats/{id}/messages.
type PostMessageRequest struct {
	// Content must hold something besides whitespace once line endings are
	// normalised.
	Content string `json:"content" example:"Plan a three day trip to Lisbon"`
	// Parts optionally carries structured content (files, text).
	Parts []domain.Part `json:"parts,omitempty"`
	// ParentID attaches the message under an explicit parent; defaults to the latest message.
	ParentID *string `json:"parent_id,omitempty" binding:"omitempty,uuid" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
}

// PostMessageResponse is the JSON envelope for a stored message.
type PostMessageResponse struct {
	// Message is the stored user message.
	Message *domain.Message `json:"message"`
	// Chat is the chat after the append (it may have been auto-titled).
	Chat *domain.Chat `json:"chat,omitempty"`
}

// ListMessagesResponse is one page of a chat, oldest first.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// ThreadResponse is an ordered root-to-leaf chain.
type ThreadResponse struct {
	Messages []domain.Message `json:"messages"`
}

// DeleteMessagesResponse reports how many messages a subtree delete removed.
type DeleteMessagesResponse struct {
	Deleted int64 `json:"deleted"`
}

// lineEndings maps CRLF and lone CR to LF.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// blankRunRE matches three or more consecutive newlines.
var blankRunRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalises line endings, keeps at most one blank line
// between paragraphs and trims the ends.
func sanitizeContent(raw string) string {
	return strings.TrimSpace(blankRunRE.ReplaceAllString(lineEndings.Replace(raw), "\n\n"))
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Append a user message
// @Description Stores a user message in the chat without generating a reply; use the
// @Description completions endpoints for that. Supports idempotency via the Idempotency-Key header.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Chat ID (UUID)"              format(uuid)
// @Param       body             body    handlers.PostMessageRequest  true  "User message payload"
//
// @Success     201  {object}  handlers.PostMessageResponse  "Stored message"
// @Success     200  {object}  handlers.PostMessageResponse  "Replayed result"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse        "Chat not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /chats/{id}/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}

	var req PostMessageRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}
	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	if prev, found := h.replayedMessage(c); found {
		ok(c, http.StatusOK, PostMessageResponse{Message: prev})
		return
	}

	m, ch, err := h.svc.Messages.Append(c.Request.Context(), identity(c).UserID, chatID, services.NewMessage{
		Content:  content,
		Parts:    req.Parts,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}

	h.remember(c, m.ID, http.StatusCreated)
	ok(c, http.StatusCreated, PostMessageResponse{Message: m, Chat: ch})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a chat
// @Description Returns a paginated list of messages for the given chat in creation order.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id         path   string  true  "Chat ID (UUID)"  format(uuid)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	uid := identity(c).UserID

	// Ownership first so that a foreign chat never yields an ETag.
	if _, err := h.svc.Chats.Get(ctx, uid, chatID); err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}

	page, pageSize := clampPagination(c)

	if st, err := repo.MessagesStats(ctx, h.svc.DB, chatID); err == nil {
		if notModified(c, listETag("messages", chatID, st, page, pageSize)) {
			return
		}
	}

	items, total, err := h.svc.Messages.ListPage(ctx, uid, chatID, page, pageSize)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}

	ok(c, http.StatusOK, ListMessagesResponse{
		Messages:   items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// GetThread godoc
// @ID          getThread
// @Summary     Get a conversation thread
// @Description Returns the chain from the root message down to leaf (default: the latest message).
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path   string  true   "Chat ID (UUID)"  format(uuid)
// @Param       leaf  query  string  false  "Leaf message ID" format(uuid)
//
// @Success     200  {object} handlers.ThreadResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat or message not found"
// @Failure     409  {object} handlers.ErrorResponse "Thread is broken"
// @Router      /chats/{id}/thread [get]
func (h *Handlers) GetThread(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	chain, err := h.svc.Messages.Thread(c.Request.Context(), identity(c).UserID, chatID, strings.TrimSpace(c.Query("leaf")))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ThreadResponse{Messages: chain})
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message subtree
// @Description Deletes the message together with every reply below it.
// @Tags        Messages
// @Produce     json
// @Security    BearerAuth
//
// @Param       id   path  string  true  "Chat ID (UUID)"     format(uuid)
// @Param       mid  path  string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.DeleteMessagesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat or message not found"
// @Router      /chats/{id}/messages/{mid} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	msgID, valid := uuidParam(c, "mid", "message")
	if !valid {
		return
	}
	n, err := h.svc.Messages.DeleteSubtree(c.Request.Context(), identity(c).UserID, chatID, msgID)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, DeleteMessagesResponse{Deleted: n})
}

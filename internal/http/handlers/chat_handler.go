// Chat resources: create, list (paged, grouped or searched), read, patch,
// rename, branch and cascade delete. Listing answers conditional GETs from
// repo.Stats so an idle sidebar costs one aggregate query.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/services"
	"github.com/tbourn/llm-chat-backend/internal/utils"
)

// CreateChatRequest is the body of POST /chats. Every field is optional.
type CreateChatRequest struct {
	// Blank becomes "New chat" and is replaced by the first prompt.
	Title string `json:"title" example:"Trip planning"`
	// Model optionally pins the chat to a model id from GET /models.
	Model string `json:"model,omitempty" example:"gpt-4o-mini"`
	// SystemPrompt is prepended to every completion in the chat.
	SystemPrompt string `json:"system_prompt,omitempty" example:"Answer briefly."`
}

// UpdateChatTitleRequest is the body of PUT /chats/{id}/title.
type UpdateChatTitleRequest struct {
	Title string `json:"title" binding:"required,min=1,max=255" example:"Trip planning - Lisbon"`
}

// PatchChatRequest lists the mutable chat fields. Absent fields are untouched;
// an empty model or system prompt clears it.
type PatchChatRequest struct {
	Title        *string `json:"title,omitempty" example:"Renamed"`
	Pinned       *bool   `json:"pinned,omitempty" example:"true"`
	Model        *string `json:"model,omitempty" example:"gpt-4o"`
	SystemPrompt *string `json:"system_prompt,omitempty" example:"You are terse."`
}

// BranchChatRequest selects the message a branch is cut at.
type BranchChatRequest struct {
	MessageID string `json:"message_id" binding:"required,uuid" example:"fa4dfbe0-c3bf-47bd-b32f-d7de221cf43b"`
}

// ListChatsResponse is one page of the sidebar.
type ListChatsResponse struct {
	Chats      []domain.Chat `json:"chats"`
	Pagination Pagination    `json:"pagination"`
}

// GroupedChatsResponse is the grouped listing used by sidebars.
type GroupedChatsResponse struct {
	Groups []services.ChatGroup `json:"groups"`
}

// SearchChatsResponse holds ranked search hits.
type SearchChatsResponse struct {
	Query string               `json:"query"`
	Hits  []services.SearchHit `json:"hits"`
}

// CreateChat godoc
// @ID          createChat
// @Summary     Create a new chat
// @Description Creates a chat for the current user and returns the chat resource.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body       body    handlers.CreateChatRequest  true  "Create chat payload"
//
// @Success     201  {object}  domain.Chat
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}

	ch, err := h.svc.Chats.CreateWith(c.Request.Context(), identity(c).UserID, services.NewChat{
		Title:        strings.TrimSpace(req.Title),
		Model:        strings.TrimSpace(req.Model),
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, ch)
}

// ListChats godoc
// @ID          listChats
// @Summary     List chats
// @Description Returns a page of the user's chats, or with grouped=true every chat bucketed
// @Description into Pinned, Today, Yesterday, Last 7 Days, Last 30 Days and Older.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       grouped        query   bool    false "Group by recency"
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListChatsResponse
// @Success     200  {object} handlers.GroupedChatsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := identity(c).UserID
	grouped := c.Query("grouped") == "true"
	page, pageSize := clampPagination(c)

	// Best effort: a stats failure just skips the validator. Groups also
	// depend on the current day.
	if st, err := repo.ChatsStats(ctx, h.svc.DB, uid); err == nil {
		etag := listETag("chats", uid, st, page, pageSize)
		if grouped {
			etag = listETag("chats", uid, st, "g"+time.Now().UTC().Format("20060102"))
		}
		if notModified(c, etag) {
			return
		}
	}

	if grouped {
		groups, err := h.svc.Chats.ListGrouped(ctx, uid, time.Now())
		if err != nil {
			respondError(c, err, ErrCodeListFailed)
			return
		}
		ok(c, http.StatusOK, GroupedChatsResponse{Groups: groups})
		return
	}

	items, total, err := h.svc.Chats.ListPage(ctx, uid, page, pageSize)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListChatsResponse{Chats: items, Pagination: newPagination(page, pageSize, total)})
}

// SearchChats godoc
// @ID          searchChats
// @Summary     Search chats
// @Description Ranks the user's chats by title and message content. One hit per chat.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       q      query  string  true   "Search text"
// @Param       limit  query  int     false  "Max hits" minimum(1) maximum(50) default(20)
//
// @Success     200  {object} handlers.SearchChatsResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing query"
// @Failure     401  {object} handlers.ErrorResponse "Unauthenticated"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/search [get]
func (h *Handlers) SearchChats(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q is required")
		return
	}
	limit := utils.IntInRange(c.Query("limit"), 20, 1, 50)

	hits, err := h.svc.Chats.Search(c.Request.Context(), identity(c).UserID, q, limit)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	if hits == nil {
		hits = []services.SearchHit{}
	}
	ok(c, http.StatusOK, SearchChatsResponse{Query: q, Hits: hits})
}

// GetChat godoc
// @ID          getChat
// @Summary     Get a chat
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object} domain.Chat
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [get]
func (h *Handlers) GetChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	ch, err := h.svc.Chats.Get(c.Request.Context(), identity(c).UserID, chatID)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ch)
}

// PatchChat godoc
// @ID          patchChat
// @Summary     Update chat settings
// @Description Pins or unpins a chat, changes its model or system prompt, or renames it.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                      true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.PatchChatRequest   true  "Fields to change"
//
// @Success     200  {object} domain.Chat
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [patch]
func (h *Handlers) PatchChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	var req PatchChatRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title must not be empty")
		return
	}

	ch, err := h.svc.Chats.Patch(c.Request.Context(), identity(c).UserID, chatID, services.ChatPatch{
		Title:        trimmed(req.Title),
		Pinned:       req.Pinned,
		Model:        trimmed(req.Model),
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ch)
}

// UpdateChatTitle godoc
// @ID          updateChatTitle
// @Summary     Rename a chat
// @Description Updates the title of a chat owned by the current user.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id         path    string  true  "Chat ID (UUID)"                format(uuid) example(141add05-4415-4938-b5a1-17e0d3171aff)
// @Param       body       body    handlers.UpdateChatTitleRequest  true  "New title"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/{id}/title [put]
func (h *Handlers) UpdateChatTitle(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}

	var req UpdateChatTitleRequest
	if !bindJSON(c, &req, "title must be 1 to 255 characters") {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title must not be blank")
		return
	}

	if err := h.svc.Chats.UpdateTitle(c.Request.Context(), identity(c).UserID, chatID, req.Title); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}

	noContent(c)
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete a chat
// @Description Deletes the chat with its messages, feedback, share link and attachments.
// @Tags        Chats
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id} [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	if err := h.svc.Chats.Delete(c.Request.Context(), identity(c).UserID, chatID); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// BranchChat godoc
// @ID          branchChat
// @Summary     Branch a chat
// @Description Copies the thread ending at message_id into a new chat that points back at its source.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                      true  "Chat ID (UUID)"  format(uuid)
// @Param       body  body  handlers.BranchChatRequest  true  "Branch point"
//
// @Success     201  {object} domain.Chat
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Chat or message not found"
// @Failure     409  {object} handlers.ErrorResponse "Thread is broken"
// @Router      /chats/{id}/branch [post]
func (h *Handlers) BranchChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	var req BranchChatRequest
	if !bindJSON(c, &req, "message_id must be a UUID") {
		return
	}
	ch, err := h.svc.Chats.Branch(c.Request.Context(), identity(c).UserID, chatID, req.MessageID)
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, ch)
}

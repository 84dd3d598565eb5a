// Share HTTP handlers.
//
//   - POST   /chats/{id}/share   (create or return the share link)
//   - DELETE /chats/{id}/share   (revoke it)
//   - GET    /shared/{id}        (public, redacted snapshot; no auth)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ShareResponse identifies a share link.
type ShareResponse struct {
	ShareID string `json:"share_id" example:"7f0c1a8e-8d7c-4c1e-9a53-2a3b1c9e4d10"`
	ChatID  string `json:"chat_id"`
	// Path is the public snapshot route, relative to the API base.
	Path string `json:"path" example:"/shared/7f0c1a8e-8d7c-4c1e-9a53-2a3b1c9e4d10"`
}

// ShareChat godoc
// @ID          shareChat
// @Summary     Share a chat
// @Description Creates a public read-only link to the chat; sharing again returns the same link.
// @Tags        Sharing
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ShareResponse
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/share [post]
func (h *Handlers) ShareChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	sh, err := h.svc.Shares.Share(c.Request.Context(), identity(c).UserID, chatID)
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusOK, ShareResponse{ShareID: sh.ID, ChatID: sh.ChatID, Path: "/shared/" + sh.ID})
}

// UnshareChat godoc
// @ID          unshareChat
// @Summary     Revoke a chat's share link
// @Tags        Sharing
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Chat or share not found"
// @Router      /chats/{id}/share [delete]
func (h *Handlers) UnshareChat(c *gin.Context) {
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	if err := h.svc.Shares.Unshare(c.Request.Context(), identity(c).UserID, chatID); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// GetSharedChat godoc
// @ID          getSharedChat
// @Summary     View a shared chat
// @Description Public snapshot. Tool inputs, outputs and file URLs are redacted; system messages are hidden.
// @Tags        Sharing
// @Produce     json
//
// @Param       id  path  string  true  "Share ID (UUID)"  format(uuid)
//
// @Success     200  {object} services.Snapshot
// @Failure     404  {object} handlers.ErrorResponse "Share not found"
// @Router      /shared/{id} [get]
func (h *Handlers) GetSharedChat(c *gin.Context) {
	shareID, valid := uuidParam(c, "id", "share")
	if !valid {
		return
	}
	snap, err := h.svc.Shares.Snapshot(c.Request.Context(), shareID)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	ok(c, http.StatusOK, snap)
}

// Attachment HTTP handlers.
//
//   - POST   /chats/{id}/attachments     (multipart upload, field "file")
//   - GET    /chats/{id}/attachments     (list)
//   - GET    /attachments/{id}           (metadata plus a download URL)
//   - GET    /attachments/{id}/content   (stream the bytes)
//   - DELETE /attachments/{id}
package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// AttachmentResponse is an attachment with a URL its bytes can be fetched from.
// ExpiresAt is set for signed object-store URLs only.
type AttachmentResponse struct {
	Attachment *domain.ChatAttachment `json:"attachment"`
	URL        string                 `json:"url"`
	ExpiresAt  *time.Time             `json:"expires_at,omitempty"`
}

// ListAttachmentsResponse lists a chat's attachments.
type ListAttachmentsResponse struct {
	Attachments []domain.ChatAttachment `json:"attachments"`
}

// UploadAttachment godoc
// @ID          uploadAttachment
// @Summary     Upload a file to a chat
// @Description Stores the file; the name is sanitised and the content type is detected when missing.
// @Tags        Attachments
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path      string  true  "Chat ID (UUID)"  format(uuid)
// @Param       file  formData  file    true  "File to upload"
//
// @Success     201  {object} domain.ChatAttachment
// @Failure     400  {object} handlers.ErrorResponse "Missing or empty file"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     413  {object} handlers.ErrorResponse "File too large"
// @Router      /chats/{id}/attachments [post]
func (h *Handlers) UploadAttachment(c *gin.Context) {
	if h.svc.Attachments == nil {
		unavailable(c, "attachments")
		return
	}
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart field \"file\" is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	defer f.Close()

	a, err := h.svc.Attachments.Create(c.Request.Context(), identity(c).UserID, chatID, services.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		respondError(c, err, ErrCodeCreateFailed)
		return
	}
	ok(c, http.StatusCreated, a)
}

// ListAttachments godoc
// @ID          listAttachments
// @Summary     List a chat's attachments
// @Tags        Attachments
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.ListAttachmentsResponse
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Router      /chats/{id}/attachments [get]
func (h *Handlers) ListAttachments(c *gin.Context) {
	if h.svc.Attachments == nil {
		unavailable(c, "attachments")
		return
	}
	chatID, valid := uuidParam(c, "id", "chat")
	if !valid {
		return
	}
	items, err := h.svc.Attachments.List(c.Request.Context(), identity(c).UserID, chatID)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.ChatAttachment{}
	}
	ok(c, http.StatusOK, ListAttachmentsResponse{Attachments: items})
}

// GetAttachment godoc
// @ID          getAttachment
// @Summary     Get an attachment download URL
// @Description Returns a short-lived signed URL when the object store supports it, otherwise
// @Description the path of the content endpoint.
// @Tags        Attachments
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Attachment ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.AttachmentResponse
// @Failure     404  {object} handlers.ErrorResponse "Attachment not found"
// @Router      /attachments/{id} [get]
func (h *Handlers) GetAttachment(c *gin.Context) {
	if h.svc.Attachments == nil {
		unavailable(c, "attachments")
		return
	}
	id, valid := uuidParam(c, "id", "attachment")
	if !valid {
		return
	}
	d, err := h.svc.Attachments.Get(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	resp := AttachmentResponse{Attachment: d.Attachment, URL: d.URL}
	if d.Body != nil {
		_ = d.Body.Close()
		resp.URL = strings.TrimSuffix(c.Request.URL.Path, "/") + "/content"
	} else {
		resp.ExpiresAt = &d.ExpiresAt
	}
	ok(c, http.StatusOK, resp)
}

// DownloadAttachment godoc
// @ID          downloadAttachment
// @Summary     Download an attachment
// @Tags        Attachments
// @Produce     octet-stream
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Attachment ID (UUID)"  format(uuid)
//
// @Success     200  {file}   file
// @Failure     404  {object} handlers.ErrorResponse "Attachment not found"
// @Router      /attachments/{id}/content [get]
func (h *Handlers) DownloadAttachment(c *gin.Context) {
	if h.svc.Attachments == nil {
		unavailable(c, "attachments")
		return
	}
	id, valid := uuidParam(c, "id", "attachment")
	if !valid {
		return
	}
	d, err := h.svc.Attachments.Open(c.Request.Context(), identity(c).UserID, id)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	defer d.Body.Close()

	a := d.Attachment
	c.DataFromReader(http.StatusOK, a.Size, a.MimeType, d.Body, map[string]string{
		"Content-Disposition":    mime.FormatMediaType("attachment", map[string]string{"filename": a.FileName}),
		"X-Content-Type-Options": "nosniff",
		"Cache-Control":          "private, max-age=300",
	})
}

// DeleteAttachment godoc
// @ID          deleteAttachment
// @Summary     Delete an attachment
// @Tags        Attachments
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Attachment ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Attachment not found"
// @Router      /attachments/{id} [delete]
func (h *Handlers) DeleteAttachment(c *gin.Context) {
	if h.svc.Attachments == nil {
		unavailable(c, "attachments")
		return
	}
	id, valid := uuidParam(c, "id", "attachment")
	if !valid {
		return
	}
	if err := h.svc.Attachments.Delete(c.Request.Context(), identity(c).UserID, id); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

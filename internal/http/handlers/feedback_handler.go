package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LeaveFeedbackRequest rates an assistant message.
type LeaveFeedbackRequest struct {
	// Value is +1 (positive) or -1 (negative).
	Value   int     `json:"value" binding:"required,oneof=-1 1" example:"1"`
	Comment *string `json:"comment,omitempty" binding:"omitempty,max=4000" example:"Looks good"`
}

// LeaveFeedback godoc
// @ID          leaveFeedback
// @Summary     Leave feedback on a message
// @Description Records positive (+1) or negative (-1) feedback, with an optional comment, on an assistant message.
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       id    path  string                         true  "Message ID (UUID)"  format(uuid)
// @Param       body  body  handlers.LeaveFeedbackRequest  true  "Feedback payload"
//
// @Success     201  {object} domain.Feedback
// @Failure     400  {object} handlers.ErrorResponse "Invalid payload"
// @Failure     403  {object} handlers.ErrorResponse "Not an assistant message"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     409  {object} handlers.ErrorResponse "Feedback already exists"
// @Router      /messages/{id}/feedback [post]
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	messageID, valid := uuidParam(c, "id", "message")
	if !valid {
		return
	}
	var req LeaveFeedbackRequest
	if !bindJSON(c, &req, "value must be -1 or 1") {
		return
	}
	var comment string
	if req.Comment != nil {
		comment = *req.Comment
	}

	fb, err := h.svc.Feedback.Leave(c.Request.Context(), identity(c).UserID, messageID, req.Value, comment)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, fb)
}

// RetractFeedback godoc
// @ID          retractFeedback
// @Summary     Retract feedback
// @Tags        Feedback
// @Security    BearerAuth
//
// @Param       id  path  string  true  "Message ID (UUID)"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "No feedback on this message"
// @Router      /messages/{id}/feedback [delete]
func (h *Handlers) RetractFeedback(c *gin.Context) {
	messageID, valid := uuidParam(c, "id", "message")
	if !valid {
		return
	}
	if err := h.svc.Feedback.Retract(c.Request.Context(), identity(c).UserID, messageID); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

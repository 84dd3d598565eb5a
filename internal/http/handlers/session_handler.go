// Session and catalogue handlers.
//
//   - GET  /csrf              (double-submit token)
//   - POST /auth/anonymous    (guest session token)
//   - GET  /models            (model catalogue)
//   - POST /billing/webhook   (payments provider events, HMAC-signed)
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/llm"
)

// HeaderSignature carries the webhook body's HMAC-SHA256.
const HeaderSignature = "X-Signature"

// CSRFResponse carries a token to echo in X-CSRF-Token.
type CSRFResponse struct {
	Token string `json:"csrf_token"`
}

// ModelsResponse lists the offered models.
type ModelsResponse struct {
	Models  []llm.Model `json:"models"`
	Default string      `json:"default"`
}

// WebhookResponse acknowledges a processed event.
type WebhookResponse struct {
	Received bool   `json:"received"`
	EventID  string `json:"event_id,omitempty"`
}

// IssueCSRF godoc
// @ID          issueCSRF
// @Summary     Get a CSRF token
// @Description Sets the csrf_token cookie and returns the same token for the X-CSRF-Token header.
// @Tags        Session
// @Produce     json
//
// @Success     200  {object} handlers.CSRFResponse
// @Router      /csrf [get]
func (h *Handlers) IssueCSRF(c *gin.Context) {
	if h.svc.CSRF == nil {
		unavailable(c, "csrf")
		return
	}
	tok, err := h.svc.CSRF.Issue(c)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusOK, CSRFResponse{Token: tok})
}

// AnonymousSession godoc
// @ID          anonymousSession
// @Summary     Start a guest session
// @Description Issues a bearer token for a new anonymous identity with the guest quota.
// @Tags        Session
// @Produce     json
//
// @Success     201  {object} services.Session
// @Failure     503  {object} handlers.ErrorResponse "Token authentication not configured"
// @Router      /auth/anonymous [post]
func (h *Handlers) AnonymousSession(c *gin.Context) {
	s, err := h.svc.Auth.IssueAnonymous()
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	c.Header("Cache-Control", "no-store")
	ok(c, http.StatusCreated, s)
}

// ListModels godoc
// @ID          listModels
// @Summary     List models
// @Tags        Models
// @Produce     json
//
// @Success     200  {object} handlers.ModelsResponse
// @Router      /models [get]
func (h *Handlers) ListModels(c *gin.Context) {
	ok(c, http.StatusOK, ModelsResponse{Models: h.svc.Models.List(), Default: h.svc.Models.Default().ID})
}

// BillingWebhook godoc
// @ID          billingWebhook
// @Summary     Payments provider webhook
// @Description Applies subscription events. The raw body must be signed with HMAC-SHA256 in X-Signature.
// @Description A redelivered event id is acknowledged without effect; an event older than the last applied one is ignored.
// @Tags        Billing
// @Accept      json
// @Produce     json
//
// @Param       X-Signature  header  string                 true  "hex HMAC-SHA256 of the body (optionally sha256= prefixed)"
// @Param       body         body    services.BillingEvent  true  "Event"
//
// @Success     200  {object} handlers.WebhookResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown event"
// @Failure     401  {object} handlers.ErrorResponse "Bad signature"
// @Router      /billing/webhook [post]
func (h *Handlers) BillingWebhook(c *gin.Context) {
	if h.svc.Billing == nil {
		unavailable(c, "billing")
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	ev, err := h.svc.Billing.Handle(c.Request.Context(), body, c.GetHeader(HeaderSignature))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, WebhookResponse{Received: true, EventID: ev.ID})
}

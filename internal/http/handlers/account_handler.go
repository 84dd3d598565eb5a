// Account HTTP handlers.
//
//   - GET    /account                  (profile and usage)
//   - PATCH  /account                  (preferences)
//   - DELETE /account                  (erase every record of the caller)
//   - GET    /api-keys                 (BYOK keys, last four characters only)
//   - PUT    /api-keys/{provider}
//   - DELETE /api-keys/{provider}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/services"
)

// PreferencesResponse wraps the stored preferences after a patch.
type PreferencesResponse struct {
	Preferences *domain.Preferences `json:"preferences"`
}

// PutAPIKeyRequest stores a provider key. Mode "priority" always uses it;
// "fallback" (default) uses it only when the service has no key.
type PutAPIKeyRequest struct {
	Key  string `json:"key" binding:"required" example:"sk-..."`
	Mode string `json:"mode,omitempty" binding:"omitempty,oneof=priority fallback" example:"fallback"`
}

// ListAPIKeysResponse lists stored keys without key material.
type ListAPIKeysResponse struct {
	Keys []domain.UserAPIKey `json:"keys"`
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Current account and usage
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} services.Account
// @Router      /account [get]
func (h *Handlers) GetAccount(c *gin.Context) {
	acct, err := h.svc.Account.View(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, acct)
}

// UpdatePreferences godoc
// @ID          updatePreferences
// @Summary     Update preferences
// @Tags        Account
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  services.PreferencesPatch  true  "Fields to change"
//
// @Success     200  {object} handlers.PreferencesResponse
// @Failure     400  {object} handlers.ErrorResponse "Invalid preferences"
// @Router      /account [patch]
func (h *Handlers) UpdatePreferences(c *gin.Context) {
	var req services.PreferencesPatch
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}
	p, err := h.svc.Account.UpdatePreferences(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, PreferencesResponse{Preferences: p})
}

// DeleteAccount godoc
// @ID          deleteAccount
// @Summary     Delete the account
// @Description Removes the user with every chat, message, attachment, connector, task and key.
// @Tags        Account
// @Security    BearerAuth
//
// @Success     204  {string} string "No Content"
// @Router      /account [delete]
func (h *Handlers) DeleteAccount(c *gin.Context) {
	if err := h.svc.Account.Delete(c.Request.Context(), identity(c).UserID); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// ListAPIKeys godoc
// @ID          listAPIKeys
// @Summary     List provider keys
// @Tags        Account
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.ListAPIKeysResponse
// @Router      /api-keys [get]
func (h *Handlers) ListAPIKeys(c *gin.Context) {
	keys, err := h.svc.APIKeys.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	if keys == nil {
		keys = []domain.UserAPIKey{}
	}
	ok(c, http.StatusOK, ListAPIKeysResponse{Keys: keys})
}

// PutAPIKey godoc
// @ID          putAPIKey
// @Summary     Store a provider key
// @Description The key is encrypted at rest and never returned.
// @Tags        Account
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       provider  path  string                     true  "Provider"  Enums(openai, openrouter, groq, mistral, xai)
// @Param       body      body  handlers.PutAPIKeyRequest  true  "Key"
//
// @Success     200  {object} domain.UserAPIKey
// @Failure     400  {object} handlers.ErrorResponse "Unknown provider or malformed key"
// @Failure     503  {object} handlers.ErrorResponse "Encryption not configured"
// @Router      /api-keys/{provider} [put]
func (h *Handlers) PutAPIKey(c *gin.Context) {
	var req PutAPIKeyRequest
	if !bindJSON(c, &req, "key is required; mode is priority or fallback") {
		return
	}
	k, err := h.svc.APIKeys.Put(c.Request.Context(), identity(c).UserID, c.Param("provider"), req.Key, req.Mode)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, k)
}

// DeleteAPIKey godoc
// @ID          deleteAPIKey
// @Summary     Remove a provider key
// @Tags        Account
// @Security    BearerAuth
//
// @Param       provider  path  string  true  "Provider"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "No key stored"
// @Router      /api-keys/{provider} [delete]
func (h *Handlers) DeleteAPIKey(c *gin.Context) {
	if err := h.svc.APIKeys.Delete(c.Request.Context(), identity(c).UserID, c.Param("provider")); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

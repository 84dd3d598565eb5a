// Connector HTTP handlers.
//
//   - GET    /connectors                  (every type with its state)
//   - POST   /connectors/{type}/connect   (begin OAuth, returns the consent URL)
//   - GET    /connectors/callback         (OAuth redirect target; public)
//   - GET    /connectors/{type}/status
//   - DELETE /connectors/{type}
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"github.com/tbourn/llm-chat-backend/internal/services"
)

// ConnectResponse carries the provider consent URL.
type ConnectResponse struct {
	AuthURL string `json:"auth_url" example:"https://accounts.google.com/o/oauth2/auth?..."`
}

// ListConnectorsResponse lists every connector type.
type ListConnectorsResponse struct {
	Connectors []services.ConnectorStatus `json:"connectors"`
}

// ListConnectors godoc
// @ID          listConnectors
// @Summary     List connectors
// @Tags        Connectors
// @Produce     json
// @Security    BearerAuth
//
// @Success     200  {object} handlers.ListConnectorsResponse
// @Router      /connectors [get]
func (h *Handlers) ListConnectors(c *gin.Context) {
	if h.svc.Connectors == nil {
		unavailable(c, "connectors")
		return
	}
	items, err := h.svc.Connectors.List(c.Request.Context(), identity(c).UserID)
	if err != nil {
		respondError(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, ListConnectorsResponse{Connectors: items})
}

// Connect godoc
// @ID          connectConnector
// @Summary     Begin connecting a connector
// @Description Returns the provider consent URL. The provider redirects back to /connectors/callback.
// @Tags        Connectors
// @Produce     json
// @Security    BearerAuth
//
// @Param       type  path  string  true  "Connector type"  Enums(gmail, google_calendar, google_drive, notion)
//
// @Success     200  {object} handlers.ConnectResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown connector"
// @Failure     503  {object} handlers.ErrorResponse "Connector not configured"
// @Router      /connectors/{type}/connect [post]
func (h *Handlers) Connect(c *gin.Context) {
	if h.svc.Connectors == nil {
		unavailable(c, "connectors")
		return
	}
	u, err := h.svc.Connectors.Connect(c.Request.Context(), identity(c).UserID, c.Param("type"))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, ConnectResponse{AuthURL: u})
}

// ConnectorCallback godoc
// @ID          connectorCallback
// @Summary     OAuth callback
// @Description Completes a connection. The state parameter identifies the user; no session is required.
// @Tags        Connectors
// @Produce     json
//
// @Param       state  query  string  true   "OAuth state"
// @Param       code   query  string  false  "Authorization code"
// @Param       error  query  string  false  "Provider error"
//
// @Success     200  {object} services.ConnectorStatus
// @Failure     400  {object} handlers.ErrorResponse "Invalid state or denied consent"
// @Failure     502  {object} handlers.ErrorResponse "Token exchange failed"
// @Router      /connectors/callback [get]
func (h *Handlers) ConnectorCallback(c *gin.Context) {
	if h.svc.Connectors == nil {
		unavailable(c, "connectors")
		return
	}
	if e := strings.TrimSpace(c.Query("error")); e != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "authorization denied: "+e)
		return
	}
	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "state and code are required")
		return
	}

	conn, err := h.svc.Connectors.Callback(c.Request.Context(), state, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			_ = c.Error(err)
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "token exchange failed")
			return
		}
		respondError(c, err, ErrCodeInternal)
		return
	}
	st, err := h.svc.Connectors.Status(c.Request.Context(), conn.UserID, conn.Type)
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// ConnectorStatus godoc
// @ID          connectorStatus
// @Summary     Connector status
// @Tags        Connectors
// @Produce     json
// @Security    BearerAuth
//
// @Param       type  path  string  true  "Connector type"
//
// @Success     200  {object} services.ConnectorStatus
// @Failure     400  {object} handlers.ErrorResponse "Unknown connector"
// @Router      /connectors/{type}/status [get]
func (h *Handlers) ConnectorStatus(c *gin.Context) {
	if h.svc.Connectors == nil {
		unavailable(c, "connectors")
		return
	}
	st, err := h.svc.Connectors.Status(c.Request.Context(), identity(c).UserID, c.Param("type"))
	if err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, st)
}

// Disconnect godoc
// @ID          disconnectConnector
// @Summary     Disconnect a connector
// @Tags        Connectors
// @Security    BearerAuth
//
// @Param       type  path  string  true  "Connector type"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Not connected"
// @Router      /connectors/{type} [delete]
func (h *Handlers) Disconnect(c *gin.Context) {
	if h.svc.Connectors == nil {
		unavailable(c, "connectors")
		return
	}
	if err := h.svc.Connectors.Disconnect(c.Request.Context(), identity(c).UserID, c.Param("type")); err != nil {
		respondError(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

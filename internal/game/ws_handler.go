package game

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/duelhub/debate-dueler/internal/identity"
	"github.com/duelhub/debate-dueler/internal/server"
	httperrors "github.com/duelhub/debate-dueler/pkg/http/errors"
	ws "github.com/duelhub/debate-dueler/pkg/ws"
)

// WSHandler upgrades webview connections and feeds their messages to the
// router, one reader per connection so a player's requests are handled in
// issue order.
type WSHandler struct {
	handler  *Handler
	hub      *ws.Hub
	verifier *identity.TokenVerifier
}

// NewWSHandler builds the upgrade endpoint.
func NewWSHandler(handler *Handler, hub *ws.Hub, verifier *identity.TokenVerifier) *WSHandler {
	return &WSHandler{handler: handler, hub: hub, verifier: verifier}
}

// HandleWebSocket validates the platform context token, binds the connection
// to the post named in the query, and starts the pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}

	requester, err := h.verifier.Verify(token)
	if err != nil {
		h.handler.logger.Warn().Err(err).Msg("context token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	postID := r.URL.Query().Get("post")

	conn, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.handler.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.HandleConnection(conn, requester, postID)
}

// HandleConnection runs the pumps for an accepted connection.
func (h *WSHandler) HandleConnection(conn *websocket.Conn, requester identity.Requester, postID string) {
	wsConn := ws.NewConnection(conn, h.handler.logger)
	h.hub.RegisterConnection(requester.UserID, wsConn)
	if h.handler.metrics != nil {
		h.handler.metrics.OpenConnections.Inc()
	}

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handler.HandleMessage(context.Background(), requester, postID, msg)
	})

	h.hub.UnregisterConnection(requester.UserID)
	if h.handler.metrics != nil {
		h.handler.metrics.OpenConnections.Dec()
	}
}

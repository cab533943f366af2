package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lovelink/backend/internal/auth"
	"lovelink/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The socket endpoint is token-authenticated, not origin-restricted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket authenticates the handshake and upgrades the connection.
// Authentication happens before the upgrade so an invalid credential is a
// plain HTTP 401 and no socket state is ever created for it.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	token := auth.TokenFromRequest(c.Request)
	user, err := h.Auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(user.ID, uuid.NewString(), conn, h.Hub, h.Gateway, h.Log)
	h.Hub.RegisterCh <- client
	client.Run()
}

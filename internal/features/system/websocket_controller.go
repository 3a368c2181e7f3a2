package system

import (
	"go-approvals/internal/features/notification"
	"go-approvals/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"
)

// WebSocketController keeps one live connection per client registered in the
// notification hub so approval events reach open sessions immediately.
type WebSocketController struct {
	hub    *notification.Hub
	logger *zap.Logger
}

func NewWebSocketController(hub *notification.Hub, logger *zap.Logger) *WebSocketController {
	return &WebSocketController{
		hub:    hub,
		logger: logger,
	}
}

// HandleWebSocket authenticates the connection from the token query parameter
// and keeps it registered until the client disconnects. Inbound messages are
// ignored; the socket is push-only.
func (h *WebSocketController) HandleWebSocket(c *websocket.Conn) {
	token := c.Query("token")
	claims, err := utils.ValidateToken(token)
	if err != nil {
		_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"invalid token"}`))
		_ = c.Close()
		return
	}

	h.hub.Register(claims.UserID, c)
	defer func() {
		h.hub.Unregister(claims.UserID, c)
		_ = c.Close()
	}()

	h.logger.Debug("websocket connected", zap.String("user_id", claims.UserID))

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"auction-engine/internal/domain"
	ws "auction-engine/internal/infrastructure/websocket"
	"auction-engine/pkg/logger"
)

type WebSocketHandler struct {
	registry domain.ConnectionRegistry
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewWebSocketHandler(registry domain.ConnectionRegistry, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Connect upgrades the request and keeps the connection registered for
// live pushes until the peer goes away.
func (h *WebSocketHandler) Connect(c echo.Context) error {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		userID = c.QueryParam("user")
	}
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing user identity"})
	}

	raw, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "user_id", userID, "error", err)
		return err
	}

	conn := ws.NewConn(raw)
	h.registry.Register(userID, conn)

	// Reads only feed the close detection; clients receive, they do
	// not send.
	go func() {
		defer func() {
			h.registry.Unregister(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := raw.ReadMessage(); err != nil {
				return
			}
		}
	}()

	return nil
}

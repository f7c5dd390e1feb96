package handler

import (
	"fanova-be/internal/pkg/auth"
	"fanova-be/internal/pkg/logger"
	internalWS "fanova-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SocketHandler upgrades authenticated requests into job update streams.
type SocketHandler struct {
	hub    *internalWS.Hub
	auth   fiber.Handler
	logger logger.ILogger
}

// NewSocketHandler expects authMiddleware to accept ?token= since browsers cannot set headers on upgrades.
func NewSocketHandler(hub *internalWS.Hub, authMiddleware fiber.Handler, log logger.ILogger) *SocketHandler {
	return &SocketHandler{
		hub:    hub,
		auth:   authMiddleware,
		logger: log,
	}
}

func (h *SocketHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws", h.auth, h.ServeWs)
}

// ServeWs handles websocket requests from the peer.
func (h *SocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID := auth.MustPrincipal(c).UserID

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WS", "Starting WebSocket session", map[string]interface{}{"user_id": userID.String()})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("WS", "WebSocket session ended", map[string]interface{}{"user_id": userID.String()})
	})(c)
}

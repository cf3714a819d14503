package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
	"github.com/gitCarrot/OrchAI-sub000/internal/websocket"
)

type WebSocketHandler struct {
	svc    *service.Service
	hub    *websocket.Hub
	logger *logrus.Logger
}

func NewWebSocketHandler(svc *service.Service, hub *websocket.Hub, logger *logrus.Logger) *WebSocketHandler {
	return &WebSocketHandler{svc: svc, hub: hub, logger: logger}
}

// HandleWebSocket upgrades the connection once the caller is known to have
// read access to the refrigerator.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	ident, ok := currentIdentity(c, h.logger)
	if !ok {
		return
	}
	id, ok := paramID(c, h.logger, "id")
	if !ok {
		return
	}

	if _, err := h.svc.Authorize(c.Request.Context(), ident, id, access.OpRead); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.hub.ServeWS(c, ident, id)
}

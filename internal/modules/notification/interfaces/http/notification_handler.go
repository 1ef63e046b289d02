package http

import (
	"net/http"

	"github.com/saransh1220/filebox/internal/gateway/middleware"
	"github.com/saransh1220/filebox/internal/modules/notification/infrastructure/websocket"
	"github.com/saransh1220/filebox/internal/shared/utils"
)

type NotificationHandler struct {
	hub *websocket.Hub
}

func NewNotificationHandler(hub *websocket.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// Subscribe upgrades GET /ws and streams the caller's file events.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "Auth token missing")
		return
	}

	websocket.ServeWs(h.hub, w, r, identity.UserID)
}

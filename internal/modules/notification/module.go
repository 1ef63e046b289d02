package notification

import (
	"log/slog"

	"github.com/saransh1220/filebox/internal/modules/notification/application"
	"github.com/saransh1220/filebox/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/saransh1220/filebox/internal/modules/notification/interfaces/http"
)

type Module struct {
	publisher *application.Publisher
	handler   *notification_http.NotificationHandler
	hub       *websocket.Hub
}

func NewModule(logger *slog.Logger) *Module {
	hub := websocket.NewHub(logger)
	go hub.Run()

	return &Module{
		publisher: application.NewPublisher(hub, logger),
		handler:   notification_http.NewNotificationHandler(hub),
		hub:       hub,
	}
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

// Publisher returns the event publisher handed to the files module.
func (m *Module) Publisher() *application.Publisher {
	return m.publisher
}

// Stop closes every subscriber connection.
func (m *Module) Stop() {
	m.hub.Stop()
}

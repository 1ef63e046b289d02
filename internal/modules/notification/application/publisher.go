package application

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/modules/notification/domain"
	"github.com/saransh1220/filebox/internal/shared/logging"
)

// Sender delivers a message to the live connections of one user without blocking.
type Sender interface {
	SendToUser(userID uuid.UUID, message []byte) bool
}

// Publisher pushes file events to their owner. Events for users without a
// live connection are dropped; nothing is stored.
type Publisher struct {
	sender Sender
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(sender Sender, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{sender: sender, now: time.Now, logger: logger.With(logging.Component("notification"))}
}

// Publish implements the files module's EventPublisher.
func (p *Publisher) Publish(userID uuid.UUID, eventType string, payload any) {
	msg, err := json.Marshal(domain.Event{Type: eventType, File: payload, At: p.now().UTC()})
	if err != nil {
		p.logger.Error("event not encoded", logging.Error(err), slog.String("type", eventType))
		return
	}
	if !p.sender.SendToUser(userID, msg) {
		p.logger.Warn("event dropped", logging.UserID(userID), slog.String("type", eventType))
	}
}

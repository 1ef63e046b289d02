package websocket

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/saransh1220/filebox/internal/shared/logging"
)

// unicastBuffer is how many undelivered messages the hub queues before
// SendToUser starts dropping.
const unicastBuffer = 256

type UnicastMessage struct {
	UserID  uuid.UUID
	Message []byte
}

// Hub maintains the set of active clients and routes each message to the
// clients of one user.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Unicast messages
	unicast chan UnicastMessage

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Channel to signal termination
	stop     chan struct{}
	stopOnce sync.Once

	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		unicast:    make(chan UnicastMessage, unicastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),

		clients: make(map[*Client]bool),
		stop:    make(chan struct{}),
		logger:  logger.With(logging.Component("websocket")),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("client registered", logging.UserID(client.userID), slog.Int("clients", len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
				h.logger.Debug("client unregistered", logging.UserID(client.userID))
			}
		case msg := <-h.unicast:
			for client := range h.clients {
				if client.userID != msg.UserID {
					continue
				}
				select {
				case client.send <- msg.Message:
				default:
					// slow reader, drop the connection rather than the hub
					h.remove(client)
				}
			}
		case <-h.stop:
			for client := range h.clients {
				h.remove(client)
			}
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// SendToUser queues message for every connection of userID. It never blocks;
// it reports false when the message was dropped.
func (h *Hub) SendToUser(userID uuid.UUID, message []byte) bool {
	select {
	case <-h.stop:
		return false
	default:
	}
	select {
	case h.unicast <- UnicastMessage{UserID: userID, Message: message}:
		return true
	default:
		return false
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

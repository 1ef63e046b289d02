package domain

import "time"

// Event is what a subscriber receives on its websocket, one JSON object per message.
type Event struct {
	Type string    `json:"type"`
	File any       `json:"file"`
	At   time.Time `json:"at"`
}

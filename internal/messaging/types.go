package messaging

import (
	"context"
	"time"
)

// Inbound is one customer message entering the dialogue core. UserID is the
// stable per-user conversation key (chat id, phone number, or similar).
type Inbound struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Outbound is the assistant's reply for one turn.
type Outbound struct {
	UserID    string `json:"user_id"`
	Text      string `json:"text"`
	Intent    string `json:"intent,omitempty"`
	Escalated bool   `json:"escalated,omitempty"`
}

// Orchestrator handles one turn end to end. Implemented by the dialogue core.
type Orchestrator interface {
	HandleMessage(ctx context.Context, in Inbound) (Outbound, error)
}

// Sender delivers outbound messages over a concrete channel.
type Sender interface {
	Send(ctx context.Context, out Outbound) error
}

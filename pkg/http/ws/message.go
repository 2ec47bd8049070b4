package ws

import (
	"encoding/json"
	"fmt"
)

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"

	// Server -> Client
	TypeLeaderboardSnapshot = "leaderboard_snapshot"
	TypeLeaderboardUpdate   = "leaderboard_update"
	TypeError               = "error"
	TypePing                = "ping"
	TypePong                = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload interface{}) (Message, error) {
	if payload == nil {
		return Message{Type: msgType}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Topic names the stream of one leaderboard.
func Topic(mode string, grade int) string {
	return fmt.Sprintf("%s:%d", mode, grade)
}

// Client Messages (incoming)

type SubscribePayload struct {
	Mode  string `json:"mode"`
	Grade int    `json:"grade"`
}

// Server Messages (outgoing)

type LeaderboardUpdatePayload struct {
	Mode         string             `json:"mode"`
	Grade        int                `json:"grade"`
	TotalChronos int                `json:"total_chronos"`
	Top          []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"display_name"`
	DurationMs  int64  `json:"duration_ms"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

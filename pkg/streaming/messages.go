// Package streaming defines the JSON messages the websocket audit backend sends.
package streaming

import (
	"encoding/json"

	"github.com/OCAP2/siegelimit/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession   = "start_session"
	TypeEndSession     = "end_session"
	TypeDecision       = "decision"
	TypeConfigRevision = "config_revision"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the session being recorded.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// EndSessionPayload closes the session with the given ID.
type EndSessionPayload struct {
	SessionID uint `json:"sessionId"`
}

// Package websocket streams the audit trail to a remote collector over WebSocket.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/OCAP2/siegelimit/pkg/core"
	"github.com/OCAP2/siegelimit/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams audit records as JSON envelopes.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn          *connection
	cfg           Config
	nextSessionID atomic.Uint64
	sessionID     atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "storage.websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope pushes the payload to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession assigns a local session ID, sends the session and waits for the ack.
// The message is cached and replayed after a reconnect.
func (b *Backend) StartSession(s *core.Session) error {
	s.ID = uint(b.nextSessionID.Add(1))
	b.sessionID.Store(uint64(s.ID))

	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.conn.setReplay(data)

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for the ack.
func (b *Backend) EndSession() error {
	id := uint(b.sessionID.Swap(0))
	data, err := marshalEnvelope(streaming.TypeEndSession, streaming.EndSessionPayload{SessionID: id})
	if err == nil {
		err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)
	}

	// cached state is cleared even when the ack never came
	b.conn.setReplay(nil)

	return err
}

// RecordDecision streams a decision stamped with the running session.
func (b *Backend) RecordDecision(r *core.DecisionRecord) error {
	rec := *r
	if rec.SessionID == 0 {
		rec.SessionID = uint(b.sessionID.Load())
	}
	return b.sendEnvelope(streaming.TypeDecision, &rec)
}

// RecordConfigRevision streams a config revision.
func (b *Backend) RecordConfigRevision(r *core.ConfigRevision) error {
	return b.sendEnvelope(streaming.TypeConfigRevision, r)
}

// Dropped returns how many messages were dropped because the send buffer was full.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/siegelimit/internal/channel"
	"github.com/OCAP2/siegelimit/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	outboxSize    = 4096
	ackBufferSize = 16
	maxReconnect  = 10
	maxBackoff    = 30 * time.Second
	writeWait     = 10 * time.Second
	ackTimeout    = 10 * time.Second
)

// SecretHeader carries the shared secret on the upgrade request.
const SecretHeader = "X-Siegelimit-Secret"

var dialer = &ws.Dialer{
	Proxy:            http.ProxyFromEnvironment,
	HandshakeTimeout: writeWait,
}

// connection owns the socket. A single supervisor goroutine writes the
// outbox, and redials with backoff when the socket fails.
type connection struct {
	url    string
	secret string
	logger *slog.Logger

	outbox  channel.Channel[[]byte]
	acks    chan streaming.AckMessage
	done    chan struct{}
	stopped chan struct{}
	dropped atomic.Uint64

	mu       sync.Mutex
	replay   []byte // sent first on every new socket
	started  bool
	closed   bool
	closeErr error
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		logger:  logger,
		outbox:  channel.New[[]byte](outboxSize),
		acks:    make(chan streaming.AckMessage, ackBufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// dial opens the first socket. Later failures are handled by the supervisor.
func (c *connection) dial(rawURL, secret string) error {
	c.url, c.secret = rawURL, secret

	conn, err := c.open()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.Close()
		return fmt.Errorf("connection closed")
	}
	c.started = true
	go c.supervise(conn)
	return nil
}

func (c *connection) open() (*ws.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid websocket URL scheme %q", u.Scheme)
	}

	header := http.Header{}
	if c.secret != "" {
		header.Set(SecretHeader, c.secret)
	}
	conn, _, err := dialer.Dial(u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) supervise(conn *ws.Conn) {
	defer close(c.stopped)
	for {
		err := c.pump(conn)
		if err == nil {
			c.shutdown(conn)
			return
		}
		c.logger.Warn("WebSocket connection lost", "error", err)
		_ = conn.Close()

		if conn = c.redial(); conn == nil {
			return
		}
	}
}

// pump writes queued messages until the socket fails (non-nil error)
// or the connection is closed (nil).
func (c *connection) pump(conn *ws.Conn) error {
	readErr := make(chan error, 1)
	go func() { readErr <- c.readAcks(conn) }()

	for {
		select {
		case <-c.done:
			return nil
		case err := <-readErr:
			return err
		case data := <-c.outbox.Receive():
			if err := write(conn, data); err != nil {
				return err
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(ws.TextMessage, data)
}

func (c *connection) readAcks(conn *ws.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != "ack" {
			c.logger.Debug("Non-ack message received", "raw", string(msg))
			continue
		}
		select {
		case c.acks <- ack:
		default:
			c.logger.Debug("Ack buffer full, dropping", "for", ack.For)
		}
	}
}

// redial returns nil when closed or out of attempts.
func (c *connection) redial() *ws.Conn {
	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		c.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-c.done:
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.open()
		if err != nil {
			c.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		replay := c.replay
		c.mu.Unlock()
		if replay != nil {
			if err := write(conn, replay); err != nil {
				c.logger.Warn("Failed to replay start_session after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		c.logger.Info("WebSocket reconnected", "attempt", attempt)
		return conn
	}

	c.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
	return nil
}

// shutdown flushes what is already queued, then closes the socket.
func (c *connection) shutdown(conn *ws.Conn) {
flush:
	for {
		select {
		case data := <-c.outbox.Receive():
			if err := write(conn, data); err != nil {
				c.logger.Warn("Failed to flush outbox on close", "error", err, "pending", c.outbox.Len())
				break flush
			}
		default:
			break flush
		}
	}

	_ = conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	err := conn.Close()

	c.mu.Lock()
	c.closeErr = err
	c.mu.Unlock()
}

// setReplay stores the message sent ahead of the outbox after a reconnect.
// nil clears it.
func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

// send queues data without blocking. It drops when the outbox is full.
func (c *connection) send(data []byte) {
	if c.outbox.TrySend(data) {
		return
	}
	if n := c.dropped.Add(1); n%100 == 1 {
		c.logger.Warn("WebSocket outbox full, dropping message", "dropped", n)
	}
}

// sendAndWait queues data and blocks until the server acks ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ack := <-c.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("connection closed while waiting for ack of %q", ackFor)
		}
	}
}

// close stops the supervisor and waits for it to say goodbye to the server.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	started := c.started
	c.mu.Unlock()

	if !started {
		return nil
	}
	<-c.stopped

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

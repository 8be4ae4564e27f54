// Package bridge implements the simulator bridge transport named in
// spec §6: the queue's `execute` step sends a built wire message
// through one of these concrete adapters. The websocket transport is
// grounded on the teacher's internal/livefeed/streamer.go (gorilla/
// websocket connection and JSON message framing), repurposed here
// from "broadcast telemetry out" to "send one command per message";
// no acknowledgement is read back.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/flightcore/copilot/internal/queue"
)

// WebSocketTransport sends commands to the bridge over a persistent
// websocket connection.
type WebSocketTransport struct {
	mu sync.Mutex

	url    string
	conn   *websocket.Conn
	dialer *websocket.Dialer
	logger *logrus.Entry

	writeTimeout time.Duration
}

// NewWebSocketTransport builds a transport targeting the given bridge
// URL. Connection is established lazily on first Send, and
// re-established automatically after a dropped connection.
func NewWebSocketTransport(url string, logger *logrus.Entry) *WebSocketTransport {
	return &WebSocketTransport{
		url:          url,
		dialer:       websocket.DefaultDialer,
		logger:       logger,
		writeTimeout: 2 * time.Second,
	}
}

func (t *WebSocketTransport) ensureConnected(ctx context.Context) error {
	if t.conn != nil {
		return nil
	}
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return fmt.Errorf("bridge dial failed: %w", err)
	}
	t.conn = conn
	if t.logger != nil {
		t.logger.WithField("url", t.url).Info("connected to simulator bridge")
	}
	return nil
}

// Send implements queue.Transport.
func (t *WebSocketTransport) Send(ctx context.Context, msg queue.WireMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureConnected(ctx); err != nil {
		return err
	}

	payload, err := encodeWireMessage(msg)
	if err != nil {
		return err
	}

	t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.conn.Close()
		t.conn = nil
		return fmt.Errorf("bridge send failed: %w", err)
	}
	return nil
}

// Close terminates the underlying connection, if any.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// encodeWireMessage renders a WireMessage as the bridge wire form: a
// bare event name string for toggles, or a {command, value} JSON
// object for value-set/axis kinds (spec §6).
func encodeWireMessage(msg queue.WireMessage) ([]byte, error) {
	if !msg.HasValue {
		return json.Marshal(string(msg.Command))
	}
	return json.Marshal(struct {
		Command string  `json:"command"`
		Value   float64 `json:"value"`
	}{Command: string(msg.Command), Value: msg.Value})
}

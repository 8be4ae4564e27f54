package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flightcore/copilot/internal/queue"
)

func TestEncodeWireMessageTogglesAsBareString(t *testing.T) {
	payload, err := encodeWireMessage(queue.WireMessage{Command: "AP_MASTER"})
	require.NoError(t, err)
	assert.Equal(t, `"AP_MASTER"`, string(payload))
}

func TestEncodeWireMessageValueAsObject(t *testing.T) {
	payload, err := encodeWireMessage(queue.WireMessage{Command: "AP_ALT_VAR_SET_ENGLISH", Value: 6500, HasValue: true})
	require.NoError(t, err)

	var decoded struct {
		Command string  `json:"command"`
		Value   float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "AP_ALT_VAR_SET_ENGLISH", decoded.Command)
	assert.Equal(t, 6500.0, decoded.Value)
}

func TestMockTransportRecordsAndResets(t *testing.T) {
	m := &MockTransport{}
	require.NoError(t, m.Send(context.Background(), queue.WireMessage{Command: "AP_MASTER"}))
	require.Len(t, m.All(), 1)

	m.Reset()
	assert.Empty(t, m.All())
}

func TestMockTransportFailureModeReturnsError(t *testing.T) {
	m := &MockTransport{Fail: true}
	err := m.Send(context.Background(), queue.WireMessage{Command: "AP_MASTER"})
	assert.Error(t, err)
}

func TestWebSocketTransportSendsEncodedMessage(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(msg)
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	tr := NewWebSocketTransport(wsURL, nil)
	defer tr.Close()

	err := tr.Send(context.Background(), queue.WireMessage{Command: "AP_MASTER"})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, `"AP_MASTER"`, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the sent message")
	}
}

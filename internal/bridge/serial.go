package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/flightcore/copilot/internal/queue"
)

// SerialTransport sends commands to a benchtop flight controller over
// a real serial link, for hardware-in-the-loop benches where the
// "simulator" is actually a physical autopilot board. Grounded on the
// teacher's internal/actuators/mavlink.go connect/heartbeat lifecycle
// and the adapter-wraps-controller idiom from its
// internal/failsafe/adapter.go.
type SerialTransport struct {
	mu sync.Mutex

	portName string
	baudRate int
	port     serial.Port
	logger   *logrus.Entry

	lastHeartbeat time.Time
}

// NewSerialTransport builds a transport bound to a serial port name
// (e.g. "/dev/ttyUSB0" or "COM3") and baud rate.
func NewSerialTransport(portName string, baudRate int, logger *logrus.Entry) *SerialTransport {
	if baudRate == 0 {
		baudRate = 921600
	}
	return &SerialTransport{portName: portName, baudRate: baudRate, logger: logger}
}

func (t *SerialTransport) ensureOpen() error {
	if t.port != nil {
		return nil
	}
	mode := &serial.Mode{BaudRate: t.baudRate}
	port, err := serial.Open(t.portName, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", t.portName, err)
	}
	t.port = port
	t.lastHeartbeat = time.Now()
	if t.logger != nil {
		t.logger.WithField("port", t.portName).Info("connected to benchtop flight controller")
	}
	return nil
}

// Send implements queue.Transport, framing one JSON wire message per
// line over the serial link.
func (t *SerialTransport) Send(ctx context.Context, msg queue.WireMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureOpen(); err != nil {
		return err
	}

	payload, err := encodeWireMessage(msg)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')

	if _, err := t.port.Write(payload); err != nil {
		t.port.Close()
		t.port = nil
		return fmt.Errorf("serial write failed: %w", err)
	}
	t.lastHeartbeat = time.Now()
	return nil
}

// Close releases the underlying serial port.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// MockTransport is an in-memory transport for tests, recording every
// wire message sent so scenario tests can assert on queue output.
type MockTransport struct {
	mu   sync.Mutex
	Sent []queue.WireMessage
	Fail bool
}

// Send implements queue.Transport.
func (m *MockTransport) Send(ctx context.Context, msg queue.WireMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail {
		return fmt.Errorf("mock transport failure")
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// All returns a copy of every message sent so far.
func (m *MockTransport) All() []queue.WireMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]queue.WireMessage, len(m.Sent))
	copy(out, m.Sent)
	return out
}

// Reset clears the recorded messages.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = nil
}

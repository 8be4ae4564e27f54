package queue

import "context"

// Transport sends a built wire message to the simulator bridge. The
// bridge itself is an external collaborator (spec §1); this interface
// is its named boundary. Concrete adapters live in internal/bridge.
type Transport interface {
	Send(ctx context.Context, msg WireMessage) error
}

// LogEntry is one executed command, kept in the bounded execution log
// (spec §3: "bounded to the last N executions").
type LogEntry struct {
	ID          string
	Kind        Kind
	Wire        WireName
	Value       float64
	HasValue    bool
	Description string
	ExecutedAt  int64 // unix nanos, set by the caller for testability
}

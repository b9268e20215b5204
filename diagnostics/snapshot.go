// Package diagnostics exposes a JSON-encodable snapshot of listener and
// connection counters (C11), written by the serve command and read back
// by the stats command.
package diagnostics

import (
	"os"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the JSON shape persisted to disk and printed by `fcgid
// stats`.
type Snapshot struct {
	AcceptedConnections int64 `json:"accepted_connections"`
	ActiveConnections   int64 `json:"active_connections"`
	FailedHandshakes    int64 `json:"failed_handshakes"`
}

// Counters is a live, concurrency-safe set of counters a serve loop
// updates as connections are accepted, completed, and rejected.
type Counters struct {
	accepted int64
	active   int64
	failed   int64
}

func (c *Counters) ConnectionAccepted() {
	atomic.AddInt64(&c.accepted, 1)
	atomic.AddInt64(&c.active, 1)
}

func (c *Counters) ConnectionClosed() {
	atomic.AddInt64(&c.active, -1)
}

func (c *Counters) HandshakeFailed() {
	atomic.AddInt64(&c.failed, 1)
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		AcceptedConnections: atomic.LoadInt64(&c.accepted),
		ActiveConnections:   atomic.LoadInt64(&c.active),
		FailedHandshakes:    atomic.LoadInt64(&c.failed),
	}
}

// WriteFile persists the snapshot as JSON to path, overwriting any
// existing content.
func (s Snapshot) WriteFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a previously persisted snapshot. A missing file yields
// a zero-valued snapshot rather than an error, matching the CLI's
// "no serve has run yet" fallback.
func ReadFile(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

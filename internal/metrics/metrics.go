// Package metrics provides lightweight, lock-free counters for tracking
// runtime statistics of a minignet server.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"minignet/internal/protocol"
)

// Collector tracks runtime metrics for a minignet server.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	connectionsActive atomic.Int64
	connectionsTotal  atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	decodeFailures    atomic.Int64
	errorResponses    atomic.Int64
	requests          [protocol.KindFetchAllMessages + 1]atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Connection metrics ───────────────────────────────────────────────

// ConnectionOpened increments both the active and total counters.
func (c *Collector) ConnectionOpened() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(1)
	c.connectionsTotal.Add(1)
}

// ConnectionClosed decrements the active connection counter.
func (c *Collector) ConnectionClosed() {
	if c == nil {
		return
	}
	c.connectionsActive.Add(-1)
}

// ActiveConnections returns the current number of open connections.
func (c *Collector) ActiveConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsActive.Load()
}

// TotalConnections returns the lifetime connection count.
func (c *Collector) TotalConnections() int64 {
	if c == nil {
		return 0
	}
	return c.connectionsTotal.Load()
}

// ── I/O metrics ──────────────────────────────────────────────────────

// BytesReceived records n request bytes.
func (c *Collector) BytesReceived(n int64) {
	if c == nil {
		return
	}
	c.bytesIn.Add(n)
}

// BytesSent records n response bytes.
func (c *Collector) BytesSent(n int64) {
	if c == nil {
		return
	}
	c.bytesOut.Add(n)
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// ── Request metrics ──────────────────────────────────────────────────

// RequestHandled counts one decoded operation of the given kind.
// Unknown kinds are ignored.
func (c *Collector) RequestHandled(kind protocol.OpKind) {
	if c == nil || int(kind) >= len(c.requests) {
		return
	}
	c.requests[kind].Add(1)
}

// Requests returns the number of handled operations of kind.
func (c *Collector) Requests(kind protocol.OpKind) int64 {
	if c == nil || int(kind) >= len(c.requests) {
		return 0
	}
	return c.requests[kind].Load()
}

// DecodeFailed counts a request that could not be decoded.
func (c *Collector) DecodeFailed() {
	if c == nil {
		return
	}
	c.decodeFailures.Add(1)
}

// DecodeFailures returns the number of undecodable requests.
func (c *Collector) DecodeFailures() int64 {
	if c == nil {
		return 0
	}
	return c.decodeFailures.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError counts an Error response and stores its reason.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorResponses.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of Error responses.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorResponses.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string           `json:"uptime"`
	ConnectionsActive int64            `json:"connections_active"`
	ConnectionsTotal  int64            `json:"connections_total"`
	BytesIn           int64            `json:"bytes_in"`
	BytesOut          int64            `json:"bytes_out"`
	Requests          map[string]int64 `json:"requests"`
	DecodeFailures    int64            `json:"decode_failures"`
	ErrorResponses    int64            `json:"error_responses"`
	LastError         string           `json:"last_error,omitempty"`
	LastErrorMessage  string           `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.  Requests lists only
// kinds seen at least once.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Requests: map[string]int64{}}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		ConnectionsActive: c.connectionsActive.Load(),
		ConnectionsTotal:  c.connectionsTotal.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		Requests:          make(map[string]int64),
		DecodeFailures:    c.decodeFailures.Load(),
		ErrorResponses:    c.errorResponses.Load(),
	}
	for _, kind := range protocol.OpKinds() {
		if n := c.requests[kind].Load(); n > 0 {
			s.Requests[kind.String()] = n
		}
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

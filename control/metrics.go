// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for transport instances.
// Counters live in a thread-safe map with dynamic registration; transports
// publish under a per-instance prefix ("ws.frames_sent", "tls.errors").

package control

import (
	"sort"
	"sync"
	"time"
)

// Counter names published by the transports.
const (
	MetricBytesSent      = "bytes_sent"
	MetricBytesReceived  = "bytes_received"
	MetricFramesSent     = "frames_sent"
	MetricFramesReceived = "frames_received"
	MetricErrors         = "errors"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	if mr == nil {
		return
	}
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments the integer counter key by delta. A non-integer value
// under key is replaced.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	if mr == nil {
		return
	}
	mr.mu.Lock()
	cur, _ := mr.metrics[key].(int64)
	mr.metrics[key] = cur + delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Counter returns the integer counter key, or 0.
func (mr *MetricsRegistry) Counter(key string) int64 {
	if mr == nil {
		return 0
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	v, _ := mr.metrics[key].(int64)
	return v
}

// Keys lists metric names in sorted order.
func (mr *MetricsRegistry) Keys() []string {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make([]string, 0, len(mr.metrics))
	for k := range mr.metrics {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Scope binds a registry to a key prefix. A zero Scope discards writes.
type Scope struct {
	reg    *MetricsRegistry
	prefix string
}

// Scope returns a prefixed view of the registry. A nil registry yields a
// scope that discards writes.
func (mr *MetricsRegistry) Scope(prefix string) Scope {
	return Scope{reg: mr, prefix: prefix}
}

// Add increments prefix.name by delta.
func (s Scope) Add(name string, delta int64) {
	if s.reg == nil {
		return
	}
	s.reg.Add(s.prefix+"."+name, delta)
}

// Inc increments prefix.name by one.
func (s Scope) Inc(name string) {
	s.Add(name, 1)
}

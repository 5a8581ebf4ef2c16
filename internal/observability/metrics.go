package observability

import "sync"

// Counter names recorded by the static handler and middleware.
const (
	CounterServed      = "served"
	CounterIndex       = "index"
	CounterStatus      = "status"
	CounterNotFound    = "not_found"
	CounterPreflight   = "preflight"
	CounterRateLimited = "rate_limited"
)

// Metrics provides a minimal in-process metrics registry.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{counters: make(map[string]int64)}
}

// IncCounter is safe to call on a nil registry.
func (m *Metrics) IncCounter(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name]++
}

func (m *Metrics) Snapshot() map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		out[k] = v
	}
	return out
}

// Fields returns the snapshot in the shape logger.WithFields expects.
func (m *Metrics) Fields() map[string]interface{} {
	snap := m.Snapshot()
	out := make(map[string]interface{}, len(snap))
	for k, v := range snap {
		out[k] = v
	}
	return out
}

package health

import (
	"context"
	"sync"
	"time"
)

// Monitor periodically probes a single target and reports transitions.
// The shell runs one monitor, pointed at the sidecar port.
type Monitor struct {
	checker  Checker
	interval time.Duration

	mu     sync.RWMutex
	last   Result
	hasRun bool

	// OnChange fires when the healthy/unhealthy state flips, and once for
	// the initial result. Runs on the monitor goroutine.
	OnChange func(Result)

	// OnResult fires for every probe. Runs on the monitor goroutine.
	OnResult func(Result)
}

// NewMonitor creates a monitor for the given checker.
func NewMonitor(checker Checker, interval time.Duration) *Monitor {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &Monitor{checker: checker, interval: interval}
}

// Run probes until ctx is done. Blocks; run it on its own goroutine.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Last returns the most recent result and whether any probe has run yet.
func (m *Monitor) Last() (Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.hasRun
}

func (m *Monitor) probe(ctx context.Context) {
	result := m.checker.Check(ctx)

	m.mu.Lock()
	changed := !m.hasRun || m.last.Healthy != result.Healthy
	m.last = result
	m.hasRun = true
	m.mu.Unlock()

	if m.OnResult != nil {
		m.OnResult(result)
	}
	if changed && m.OnChange != nil {
		m.OnChange(result)
	}
}

package metrics

import (
	"runtime"
	"sync"
	"time"
)

// SidecarState is the subset of the sidecar manager the collector samples.
type SidecarState interface {
	Running() bool
}

// Collector collects and updates metrics periodically.
type Collector struct {
	metrics   *Metrics
	sidecar   SidecarState
	startTime time.Time
	ticker    *time.Ticker
	done      chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewCollector creates a new metrics collector.
func NewCollector(metrics *Metrics, sidecar SidecarState) *Collector {
	return &Collector{
		metrics:   metrics,
		sidecar:   sidecar,
		startTime: time.Now(),
	}
}

// Start starts the metrics collector.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}

	c.running = true
	c.done = make(chan struct{})
	c.ticker = time.NewTicker(15 * time.Second)

	go c.collectLoop()
}

// Stop stops the metrics collector.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	close(c.done)
	c.ticker.Stop()
	c.running = false
}

func (c *Collector) collectLoop() {
	// Initial collection
	c.collect()

	for {
		select {
		case <-c.done:
			return
		case <-c.ticker.C:
			c.collect()
		}
	}
}

func (c *Collector) collect() {
	c.metrics.Uptime.Set(time.Since(c.startTime).Seconds())
	c.metrics.GoRoutines.Set(float64(runtime.NumGoroutine()))

	if c.sidecar != nil {
		up := 0.0
		if c.sidecar.Running() {
			up = 1.0
		}
		c.metrics.SidecarUp.Set(up)
	}
}

// RecordSidecarStart records a sidecar start.
func (c *Collector) RecordSidecarStart() {
	c.metrics.SidecarStarts.Inc()
	c.metrics.SidecarUp.Set(1)
}

// RecordSidecarExit records a sidecar exit. A restart also counts as an
// unexpected exit since only crashes are restarted.
func (c *Collector) RecordSidecarExit(expected, willRestart bool) {
	c.metrics.SidecarUp.Set(0)
	if !expected {
		c.metrics.SidecarUnexpectedExits.Inc()
	}
	if willRestart {
		c.metrics.SidecarRestarts.Inc()
	}
}

// RecordHealthProbe records a health probe result.
func (c *Collector) RecordHealthProbe(healthy bool, latency time.Duration) {
	result := "unhealthy"
	if healthy {
		result = "healthy"
	}
	c.metrics.HealthProbes.WithLabelValues(result).Inc()
	c.metrics.HealthProbeLatency.Observe(latency.Seconds())
}

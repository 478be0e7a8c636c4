// Package health probes the sidecar's local API port.
package health

import (
	"context"
	"time"
)

// Checker is the interface for health checkers.
type Checker interface {
	// Check performs a health check and returns the result.
	Check(ctx context.Context) Result

	// Type returns the health check type.
	Type() string
}

// Result represents the result of a health check.
type Result struct {
	Healthy   bool          `json:"healthy"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
	Error     string        `json:"error,omitempty"`
}

// Config holds health check configuration.
type Config struct {
	Type     string        `yaml:"type" json:"type"`         // tcp, http
	Target   string        `yaml:"target" json:"target"`     // host:port
	Interval time.Duration `yaml:"interval" json:"interval"` // probe interval
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`   // per-probe timeout
	Path     string        `yaml:"path" json:"path"`         // for HTTP checks
}

// DefaultConfig returns default health check configuration.
func DefaultConfig() Config {
	return Config{
		Type:     "tcp",
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// New creates a health checker based on configuration.
func New(cfg Config) Checker {
	switch cfg.Type {
	case "http":
		return NewHTTPChecker(cfg)
	default:
		return NewTCPChecker(cfg)
	}
}

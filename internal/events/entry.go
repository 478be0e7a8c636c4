// Package events keeps a bounded in-memory history of shell events.
package events

import (
	"fmt"
	"time"
)

// Entry represents a recorded shell event.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EntryType `json:"type"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Key       string    `json:"key,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// EntryType represents the type of shell event.
type EntryType string

const (
	EntryTypeSidecarStarted   EntryType = "sidecar_started"
	EntryTypeSidecarExited    EntryType = "sidecar_exited"
	EntryTypeSidecarRestarted EntryType = "sidecar_restarted"
	EntryTypeHealthChanged    EntryType = "health_changed"
	EntryTypeSecretChanged    EntryType = "secret_changed"
	EntryTypeError            EntryType = "error"
)

// Summary returns a one-line summary of the entry.
func (e *Entry) Summary() string {
	s := fmt.Sprintf("%s %s", e.Timestamp.Format(time.TimeOnly), e.Type)
	if e.Message != "" {
		s += " " + e.Message
	}
	if e.Error != "" {
		s += " (" + e.Error + ")"
	}
	return s
}

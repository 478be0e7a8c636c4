package events

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Config holds event recorder configuration.
type Config struct {
	MaxEntries int
}

// Recorder records shell events into a bounded ring buffer.
type Recorder struct {
	storage   *Storage
	idCounter atomic.Uint64
}

// NewRecorder creates a new event recorder.
func NewRecorder(cfg Config) *Recorder {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 500
	}
	return &Recorder{
		storage: NewStorage(cfg.MaxEntries),
	}
}

// SidecarStarted records a sidecar start.
func (r *Recorder) SidecarStarted(runID string, pid int) {
	r.add(Entry{
		Type:    EntryTypeSidecarStarted,
		Message: fmt.Sprintf("sidecar started (pid %d)", pid),
		RunID:   runID,
		PID:     pid,
	})
}

// SidecarExited records a sidecar exit. exitErr may be empty for a clean exit.
func (r *Recorder) SidecarExited(runID string, pid int, exitErr string) {
	r.add(Entry{
		Type:    EntryTypeSidecarExited,
		Message: fmt.Sprintf("sidecar exited (pid %d)", pid),
		RunID:   runID,
		PID:     pid,
		Error:   exitErr,
	})
}

// SidecarRestarted records a supervised restart attempt.
func (r *Recorder) SidecarRestarted(runID string, attempt int) {
	r.add(Entry{
		Type:    EntryTypeSidecarRestarted,
		Message: fmt.Sprintf("sidecar restarting (attempt %d)", attempt),
		RunID:   runID,
	})
}

// HealthChanged records a health state transition.
func (r *Recorder) HealthChanged(healthy bool, detail string) {
	msg := "sidecar unhealthy"
	if healthy {
		msg = "sidecar healthy"
	}
	r.add(Entry{
		Type:    EntryTypeHealthChanged,
		Message: msg,
		Error:   detail,
	})
}

// SecretChanged records a secret mutation. Only the key is recorded, never
// the value.
func (r *Recorder) SecretChanged(key, action string) {
	r.add(Entry{
		Type:    EntryTypeSecretChanged,
		Message: fmt.Sprintf("secret %s %s", key, action),
		Key:     key,
	})
}

// Error records a shell error.
func (r *Recorder) Error(msg string, err error) {
	entry := Entry{
		Type:    EntryTypeError,
		Message: msg,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	r.add(entry)
}

// GetEntries returns all entries, oldest first.
func (r *Recorder) GetEntries() []Entry {
	return r.storage.GetAll()
}

// GetLastEntries returns the last n entries, newest first.
func (r *Recorder) GetLastEntries(n int) []Entry {
	return r.storage.GetLast(n)
}

// FindErrors returns all error entries.
func (r *Recorder) FindErrors() []Entry {
	return r.storage.Find(func(e Entry) bool {
		return e.Type == EntryTypeError
	})
}

// Clear removes all entries.
func (r *Recorder) Clear() {
	r.storage.Clear()
}

// Count returns the number of entries.
func (r *Recorder) Count() int {
	return r.storage.Count()
}

func (r *Recorder) add(entry Entry) {
	entry.ID = r.nextID()
	entry.Timestamp = time.Now()
	r.storage.Add(entry)
}

func (r *Recorder) nextID() string {
	id := r.idCounter.Add(1)
	return fmt.Sprintf("%d-%d", time.Now().Unix(), id)
}

package secrets

import (
	"sync"

	"github.com/koala73/worldmonitor-desktop/internal/util"
)

// MemoryBackend is an in-memory Backend for tests.
type MemoryBackend struct {
	mu     sync.Mutex
	vault  string
	hasVlt bool
	legacy map[string]string

	// FailVaultWrite makes WriteVault fail, for persist-then-commit tests.
	FailVaultWrite bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{legacy: make(map[string]string)}
}

func (m *MemoryBackend) ReadVault() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasVlt {
		return "", util.ErrNotFound
	}
	return m.vault, nil
}

func (m *MemoryBackend) WriteVault(data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailVaultWrite {
		return util.WrapError(util.ErrShuttingDown, "simulated vault write failure")
	}
	m.vault = data
	m.hasVlt = true
	return nil
}

func (m *MemoryBackend) ReadLegacy(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.legacy[key]
	if !ok {
		return "", util.ErrNotFound
	}
	return value, nil
}

func (m *MemoryBackend) DeleteLegacy(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.legacy, key)
	return nil
}

// SetLegacy seeds a legacy per-key item (test setup).
func (m *MemoryBackend) SetLegacy(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.legacy[key] = value
}

// LegacyCount returns the number of remaining legacy items.
func (m *MemoryBackend) LegacyCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.legacy)
}

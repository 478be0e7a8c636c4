package secrets

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
	"github.com/koala73/worldmonitor-desktop/internal/util"
)

// Vault is the in-memory view of the secrets store. It is loaded once from
// the backend and kept consistent with it: every mutation persists the
// proposed state first and only then commits to the cache, so a failed
// keychain write never leaves the cache ahead of disk.
type Vault struct {
	mu      sync.RWMutex
	backend Backend
	cache   map[string]string
}

// Open loads the vault from the backend. If no consolidated vault exists it
// migrates legacy per-key items (one keychain prompt each, once) into the
// vault and deletes them once the vault write succeeded.
func Open(backend Backend) (*Vault, error) {
	v := &Vault{backend: backend, cache: make(map[string]string)}

	data, err := backend.ReadVault()
	if err == nil {
		var raw map[string]string
		if jsonErr := json.Unmarshal([]byte(data), &raw); jsonErr == nil {
			for key, value := range raw {
				trimmed := strings.TrimSpace(value)
				if IsSupportedKey(key) && trimmed != "" {
					v.cache[key] = trimmed
				}
			}
			return v, nil
		}
		logging.Warn("corrupt secrets vault, attempting legacy migration")
	} else if !util.IsNotFound(err) {
		return nil, fmt.Errorf("read secrets vault: %w", err)
	}

	v.migrateLegacy()
	return v, nil
}

// migrateLegacy consolidates old per-key items into the vault. Legacy items
// are deleted only after the vault write succeeded.
func (v *Vault) migrateLegacy() {
	for _, key := range SupportedKeys {
		value, err := v.backend.ReadLegacy(key)
		if err != nil {
			continue
		}
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			v.cache[key] = trimmed
		}
	}

	if len(v.cache) == 0 {
		return
	}

	if err := v.persist(v.cache); err != nil {
		logging.Warn("secrets vault migration write failed, keeping legacy items", "error", err)
		return
	}

	for _, key := range SupportedKeys {
		if err := v.backend.DeleteLegacy(key); err != nil {
			logging.Warn("failed to remove legacy secret item", "key", key, "error", err)
		}
	}
	logging.Info("migrated legacy secrets into consolidated vault", "count", len(v.cache))
}

// Keys returns the allow-list of supported secret keys.
func (v *Vault) Keys() []string {
	keys := make([]string, len(SupportedKeys))
	copy(keys, SupportedKeys)
	return keys
}

// Get returns the value for a supported key. The second return is false when
// the key has no stored value.
func (v *Vault) Get(key string) (string, bool, error) {
	if !IsSupportedKey(key) {
		return "", false, util.WrapErrorf(util.ErrUnsupportedKey, "%q", key)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.cache[key]
	return value, ok, nil
}

// All returns a copy of every stored secret.
func (v *Vault) All() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.cache))
	for k, val := range v.cache {
		out[k] = val
	}
	return out
}

// Count returns the number of stored secrets.
func (v *Vault) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.cache)
}

// Set stores a value for a supported key. An empty (or whitespace) value
// deletes the key.
func (v *Vault) Set(key, value string) error {
	if !IsSupportedKey(key) {
		return util.WrapErrorf(util.ErrUnsupportedKey, "%q", key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	trimmed := strings.TrimSpace(value)
	proposed := make(map[string]string, len(v.cache)+1)
	for k, val := range v.cache {
		proposed[k] = val
	}
	if trimmed == "" {
		delete(proposed, key)
	} else {
		proposed[key] = trimmed
	}

	if err := v.persist(proposed); err != nil {
		return err
	}
	v.cache = proposed
	return nil
}

// Delete removes a supported key from the vault.
func (v *Vault) Delete(key string) error {
	if !IsSupportedKey(key) {
		return util.WrapErrorf(util.ErrUnsupportedKey, "%q", key)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	proposed := make(map[string]string, len(v.cache))
	for k, val := range v.cache {
		if k != key {
			proposed[k] = val
		}
	}

	if err := v.persist(proposed); err != nil {
		return err
	}
	v.cache = proposed
	return nil
}

func (v *Vault) persist(state map[string]string) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serialize vault: %w", err)
	}
	if err := v.backend.WriteVault(string(data)); err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

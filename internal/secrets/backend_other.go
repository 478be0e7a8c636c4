//go:build !darwin

package secrets

import (
	"path/filepath"

	"github.com/koala73/worldmonitor-desktop/internal/appdir"
)

// NewSystemBackend returns the secrets backend for platforms without a
// supported keychain: a 0600 JSON file in the app data directory.
func NewSystemBackend() (Backend, error) {
	dir, err := appdir.DataDir()
	if err != nil {
		return nil, err
	}
	return NewFileBackend(filepath.Join(dir, "secrets-vault.json")), nil
}

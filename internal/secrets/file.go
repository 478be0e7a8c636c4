package secrets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/koala73/worldmonitor-desktop/internal/util"
)

// FileBackend stores the vault as a 0600 JSON file. It backs the vault on
// platforms without a supported keychain and in tests that need persistence.
// Legacy per-key items never existed in the file layout, so reads of them
// report not found.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend rooted at the given path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) ReadVault() (string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", util.ErrNotFound, b.path)
		}
		return "", fmt.Errorf("read vault file: %w", err)
	}
	return string(data), nil
}

func (b *FileBackend) WriteVault(data string) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(data), 0600); err != nil {
		return fmt.Errorf("write vault file: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return fmt.Errorf("commit vault file: %w", err)
	}
	return nil
}

func (b *FileBackend) ReadLegacy(key string) (string, error) {
	return "", fmt.Errorf("%w: %s", util.ErrNotFound, key)
}

func (b *FileBackend) DeleteLegacy(string) error {
	return nil
}

//go:build darwin

package secrets

import (
	"errors"
	"fmt"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/koala73/worldmonitor-desktop/internal/util"
)

// KeychainBackend stores the vault in the macOS Keychain as a generic
// password item. Items are device-local: never synced to iCloud, never
// available while the machine is locked.
type KeychainBackend struct {
	service string
}

// NewSystemBackend returns the Keychain-backed secrets backend.
func NewSystemBackend() (Backend, error) {
	return &KeychainBackend{service: ServiceName}, nil
}

func (b *KeychainBackend) ReadVault() (string, error) {
	return b.read(VaultAccount)
}

func (b *KeychainBackend) WriteVault(data string) error {
	// Keychain update = delete + add.
	if err := b.delete(VaultAccount); err != nil {
		return err
	}

	item := gokeychain.NewGenericPassword(
		b.service,
		VaultAccount,
		fmt.Sprintf("World Monitor: %s", VaultAccount),
		[]byte(data),
		"",
	)
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := gokeychain.AddItem(item); err != nil {
		return fmt.Errorf("keychain add %q: %w", VaultAccount, err)
	}
	return nil
}

func (b *KeychainBackend) ReadLegacy(key string) (string, error) {
	return b.read(key)
}

func (b *KeychainBackend) DeleteLegacy(key string) error {
	return b.delete(key)
}

func (b *KeychainBackend) read(account string) (string, error) {
	data, err := gokeychain.GetGenericPassword(b.service, account, "", "")
	if err != nil {
		if errors.Is(err, gokeychain.ErrorItemNotFound) {
			return "", fmt.Errorf("%w: %s", util.ErrNotFound, account)
		}
		return "", fmt.Errorf("keychain get %q: %w", account, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", util.ErrNotFound, account)
	}
	return string(data), nil
}

func (b *KeychainBackend) delete(account string) error {
	err := gokeychain.DeleteGenericPasswordItem(b.service, account)
	if err != nil && !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return fmt.Errorf("keychain delete %q: %w", account, err)
	}
	return nil
}

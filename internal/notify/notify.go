// Package notify sends desktop notifications for shell events.
package notify

import (
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

const appTitle = "World Monitor"

// Notifier sends desktop notifications. A disabled notifier drops
// everything, so callers never need to check the setting themselves.
type Notifier struct {
	mu      sync.Mutex
	enabled bool
	send    func(title, message string) error
}

// New creates a notifier.
func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// SetEnabled toggles notification delivery.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Enabled reports whether notifications are delivered.
func (n *Notifier) Enabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// Notify sends a notification. Delivery failures are logged, not returned;
// a missing notification daemon must never break the shell.
func (n *Notifier) Notify(message string) {
	n.mu.Lock()
	send := n.send
	enabled := n.enabled
	n.mu.Unlock()

	if !enabled {
		return
	}
	if err := send(appTitle, message); err != nil {
		logging.Warn("failed to send notification", "error", err)
	}
}

// SidecarCrashed notifies about an unexpected sidecar exit.
func (n *Notifier) SidecarCrashed(restarting bool) {
	if restarting {
		n.Notify("The data service stopped unexpectedly and is restarting.")
		return
	}
	n.Notify("The data service stopped and could not be restarted.")
}

// Package tray provides the system tray icon for the World Monitor shell.
package tray

import (
	"context"
	"fmt"
)

// Status represents the tray icon status.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusDegraded
	StatusError
)

// MenuItem represents a menu item interface for abstraction.
type MenuItem interface {
	SetTitle(title string)
	SetTooltip(tooltip string)
	Enable()
	Disable()
	Show()
	Hide()
	Clicked() <-chan struct{}
}

// SystrayAdapter provides an interface for systray operations.
// This allows mocking the systray package for testing.
type SystrayAdapter interface {
	Run(onReady func(), onExit func())
	SetIcon(iconBytes []byte)
	SetTitle(title string)
	SetTooltip(tooltip string)
	AddMenuItem(title string, tooltip string) MenuItem
	AddSeparator()
	Quit()
}

// Tray provides the shell's system tray icon and menu.
type Tray struct {
	status    Status
	statusItm MenuItem

	onOpenDashboard func()
	onRestart       func()
	onOpenLogs      func()
	onOpenRepo      func()
	onQuit          func()
	adapter         SystrayAdapter
}

// Config holds tray configuration.
type Config struct {
	OnOpenDashboard func()
	OnRestart       func()
	OnOpenLogs      func()
	OnOpenRepo      func()
	OnQuit          func()
}

// New creates a new system tray.
func New(cfg Config) *Tray {
	return NewWithAdapter(cfg, defaultAdapter)
}

// NewWithAdapter creates a new system tray with a custom adapter (for testing).
func NewWithAdapter(cfg Config, adapter SystrayAdapter) *Tray {
	return &Tray{
		status:          StatusStopped,
		onOpenDashboard: cfg.OnOpenDashboard,
		onRestart:       cfg.OnRestart,
		onOpenLogs:      cfg.OnOpenLogs,
		onOpenRepo:      cfg.OnOpenRepo,
		onQuit:          cfg.OnQuit,
		adapter:         adapter,
	}
}

// Run starts the system tray (blocks).
func (t *Tray) Run(ctx context.Context) {
	t.adapter.Run(t.onReady, t.onExit)
}

// SetStatus updates the tray icon and status line.
func (t *Tray) SetStatus(status Status) {
	t.status = status
	t.updateIcon()
	if t.statusItm != nil {
		t.statusItm.SetTitle(fmt.Sprintf("Status: %s", statusLabel(status)))
	}
}

// SetTooltip updates the tray tooltip.
func (t *Tray) SetTooltip(tooltip string) {
	t.adapter.SetTooltip(tooltip)
}

func statusLabel(status Status) string {
	switch status {
	case StatusRunning:
		return "Running"
	case StatusDegraded:
		return "Degraded"
	case StatusError:
		return "Error"
	default:
		return "Stopped"
	}
}

func (t *Tray) onReady() {
	t.adapter.SetTitle("World Monitor")
	t.adapter.SetTooltip("World Monitor")
	t.updateIcon()

	mStatus := t.adapter.AddMenuItem("Status: Stopped", "Sidecar status")
	mStatus.Disable()
	t.statusItm = mStatus

	t.adapter.AddSeparator()

	mDashboard := t.adapter.AddMenuItem("Open Dashboard", "Open the dashboard in a browser")
	mRestart := t.adapter.AddMenuItem("Restart Sidecar", "Restart the local data service")
	mLogs := t.adapter.AddMenuItem("Open Logs Folder", "Open the log folder")
	mRepo := t.adapter.AddMenuItem("GitHub Repository", "Open the project repository")

	t.adapter.AddSeparator()

	mQuit := t.adapter.AddMenuItem("Quit", "Quit World Monitor")

	go func() {
		for {
			select {
			case <-mDashboard.Clicked():
				if t.onOpenDashboard != nil {
					t.onOpenDashboard()
				}

			case <-mRestart.Clicked():
				if t.onRestart != nil {
					t.onRestart()
				}

			case <-mLogs.Clicked():
				if t.onOpenLogs != nil {
					t.onOpenLogs()
				}

			case <-mRepo.Clicked():
				if t.onOpenRepo != nil {
					t.onOpenRepo()
				}

			case <-mQuit.Clicked():
				if t.onQuit != nil {
					t.onQuit()
				}
				t.adapter.Quit()
			}
		}
	}()
}

func (t *Tray) onExit() {
}

func (t *Tray) updateIcon() {
	var icon []byte
	switch t.status {
	case StatusRunning:
		icon = iconRunning
	case StatusDegraded:
		icon = iconDegraded
	case StatusError:
		icon = iconError
	default:
		icon = iconStopped
	}
	t.adapter.SetIcon(icon)
}

// Quit quits the system tray.
func (t *Tray) Quit() {
	t.adapter.Quit()
}

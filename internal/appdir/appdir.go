// Package appdir resolves per-user application directories for the shell.
//
// Layout follows each platform's conventions:
//
//	macOS:   ~/Library/Application Support/World Monitor, ~/Library/Logs/World Monitor
//	Windows: %APPDATA%\World Monitor, %LOCALAPPDATA%\World Monitor\logs
//	Linux:   $XDG_CONFIG_HOME/world-monitor, $XDG_STATE_HOME/world-monitor/logs
package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appNameTitle = "World Monitor"
	appNameSlug  = "world-monitor"
)

// DataDir returns the app data directory, creating it if needed.
func DataDir() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create app data dir %s: %w", dir, err)
	}
	return dir, nil
}

// LogDir returns the app log directory, creating it if needed.
func LogDir() (string, error) {
	dir, err := logDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create app log dir %s: %w", dir, err)
	}
	return dir, nil
}

func dataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		// os.UserConfigDir resolves %APPDATA% on Windows.
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		return filepath.Join(base, appNameTitle), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", appNameTitle), nil
	default:
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		return filepath.Join(base, appNameSlug), nil
	}
}

func logDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, appNameTitle, "logs"), nil
		}
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		return filepath.Join(base, appNameTitle, "logs"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, "Library", "Logs", appNameTitle), nil
	default:
		if state := os.Getenv("XDG_STATE_HOME"); state != "" {
			return filepath.Join(state, appNameSlug, "logs"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		return filepath.Join(home, ".local", "state", appNameSlug, "logs"), nil
	}
}

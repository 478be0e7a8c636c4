package config

import (
	"fmt"
	"net"
	"time"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

// DesktopConfig is the main configuration for the World Monitor shell.
type DesktopConfig struct {
	Sidecar       SidecarConfig  `yaml:"sidecar" json:"sidecar"`
	API           APIConfig      `yaml:"api" json:"api"`
	Logging       logging.Config `yaml:"logging" json:"logging"`
	Tray          TrayConfig     `yaml:"tray" json:"tray"`
	Notifications NotifyConfig   `yaml:"notifications" json:"notifications"`
	Events        EventsConfig   `yaml:"events" json:"events"`
	Cache         CacheConfig    `yaml:"cache" json:"cache"`
}

// SidecarConfig contains sidecar process settings.
type SidecarConfig struct {
	Port        int               `yaml:"port" json:"port"`
	NodeBin     string            `yaml:"node_bin,omitempty" json:"node_bin,omitempty"`
	ResourceDir string            `yaml:"resource_dir,omitempty" json:"resource_dir,omitempty"`
	DevRoot     string            `yaml:"dev_root,omitempty" json:"dev_root,omitempty"`
	Dev         bool              `yaml:"dev" json:"dev"`
	Watch       bool              `yaml:"watch" json:"watch"` // restart on script change, dev only
	ConvexURL   string            `yaml:"convex_url,omitempty" json:"convex_url,omitempty"`
	Restart     RestartConfig     `yaml:"restart" json:"restart"`
	HealthCheck HealthCheckConfig `yaml:"health_check" json:"health_check"`
}

// RestartConfig controls automatic restarts after unexpected sidecar exits.
type RestartConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Max     int      `yaml:"max" json:"max"`
	Backoff Duration `yaml:"backoff" json:"backoff"`
}

// HealthCheckConfig contains sidecar health probe settings.
type HealthCheckConfig struct {
	Type     string   `yaml:"type" json:"type"` // tcp, http
	Interval Duration `yaml:"interval" json:"interval"`
	Timeout  Duration `yaml:"timeout" json:"timeout"`
	Path     string   `yaml:"path,omitempty" json:"path,omitempty"` // for HTTP probes
}

// APIConfig contains control API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
	Token   string `yaml:"token,omitempty" json:"token,omitempty"`
}

// TrayConfig contains system tray settings.
type TrayConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// NotifyConfig contains desktop notification settings.
type NotifyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// EventsConfig contains event history settings.
type EventsConfig struct {
	MaxEntries int `yaml:"max_entries" json:"max_entries"`
}

// CacheConfig contains persistent cache settings. Path overrides the
// default location in the app data directory.
type CacheConfig struct {
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// DefaultDesktopConfig returns a shell configuration with sensible defaults.
func DefaultDesktopConfig() DesktopConfig {
	return DesktopConfig{
		Sidecar: SidecarConfig{
			Port: 46123,
			Restart: RestartConfig{
				Enabled: true,
				Max:     5,
				Backoff: Duration(2 * time.Second),
			},
			HealthCheck: HealthCheckConfig{
				Type:     "tcp",
				Interval: Duration(30 * time.Second),
				Timeout:  Duration(5 * time.Second),
			},
		},
		API: APIConfig{
			Enabled: true,
			Listen:  "127.0.0.1:46124",
		},
		// Relative log outputs resolve under the app log directory, so the
		// default shell log lands next to the sidecar's local-api.log.
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
			Output: "desktop.log",
		},
		Tray: TrayConfig{
			Enabled: true,
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
		Events: EventsConfig{
			MaxEntries: 500,
		},
	}
}

// Validate validates the shell configuration.
func (c *DesktopConfig) Validate() error {
	if c.Sidecar.Port <= 0 || c.Sidecar.Port > 65535 {
		return fmt.Errorf("sidecar port must be between 1 and 65535, got: %d", c.Sidecar.Port)
	}

	if c.Sidecar.Dev && c.Sidecar.DevRoot == "" {
		return fmt.Errorf("sidecar dev_root is required when dev mode is enabled")
	}

	if c.Sidecar.Restart.Max < 0 {
		return fmt.Errorf("restart max must be non-negative")
	}

	switch c.Sidecar.HealthCheck.Type {
	case "", "tcp", "http":
	default:
		return fmt.Errorf("health check type must be 'tcp' or 'http', got: %s", c.Sidecar.HealthCheck.Type)
	}

	if c.API.Enabled {
		host, _, err := net.SplitHostPort(c.API.Listen)
		if err != nil {
			return fmt.Errorf("api listen must be in host:port format: %w", err)
		}
		// The control API carries the sidecar token; keep it off the network.
		if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
			return fmt.Errorf("api listen must bind a loopback address, got: %s", host)
		}
	}

	if c.Events.MaxEntries < 0 {
		return fmt.Errorf("events max_entries must be non-negative")
	}

	return nil
}

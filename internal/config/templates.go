package config

// DefaultDesktopConfigTemplate is the fully commented default configuration
// for the World Monitor shell.
const DefaultDesktopConfigTemplate = `# World Monitor Shell Configuration
# This file configures the desktop shell that supervises the local data
# service (the Node.js sidecar).

# Sidecar process settings
sidecar:
  port: 46123                # TCP port the sidecar listens on
  # node_bin: "/usr/bin/node" # Explicit Node.js binary (optional; auto-resolved)
  # resource_dir: ""         # Packaged resources directory (auto-detected)
  dev: false                 # Run against a repository checkout instead of
                             # packaged resources
  # dev_root: ""             # Repository root, required when dev is true
  watch: false               # Restart the sidecar when its script changes (dev)
  # convex_url: ""           # Backend deployment URL; overrides the built-in one

  # Automatic restart after unexpected exits
  restart:
    enabled: true
    max: 5                   # Consecutive failures before giving up
    backoff: "2s"            # Base delay, grows with each attempt

  # Periodic sidecar health probe
  health_check:
    type: tcp                # tcp or http
    interval: "30s"
    timeout: "5s"
    # path: "/health"        # For HTTP probes

# Local control API for the CLI and tray
api:
  enabled: true
  listen: "127.0.0.1:46124"  # Loopback only; never expose this
  # token: ""                # Auth token; generated per run when empty

# Logging
logging:
  level: info                # debug, info, warn, error
  format: text               # text or json
  output: desktop.log        # stdout, stderr, or a file name in the log dir

# System tray icon
tray:
  enabled: true

# Desktop notifications on sidecar crashes
notifications:
  enabled: true

# In-memory event history, served by the control API
events:
  max_entries: 500

# Persistent JSON cache shared with the UI
cache:
  # path: ""                   # Overrides the default file in the app data dir
`

// Package sidecar manages the Node.js local API child process: runtime
// resolution, resource layout probing, secret/token env injection, and
// supervision across shell start/stop.
package sidecar

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

const (
	// DefaultPort is the TCP port the sidecar listens on.
	DefaultPort = 46123

	// DefaultMode is the LOCAL_API_MODE value identifying this launch path
	// to the sidecar.
	DefaultMode = "desktop-sidecar"

	// LogFileName is the sidecar output log in the app log directory.
	LogFileName = "local-api.log"

	// stableAfter is how long a run must survive before the consecutive
	// failure counter resets.
	stableAfter = 30 * time.Second
)

// ConvexURL is the deployment URL baked in at build time via ldflags.
// A runtime CONVEX_URL env var is the fallback when no value was baked in
// or configured.
var ConvexURL = ""

// RestartPolicy controls automatic restarts after unexpected sidecar exits.
type RestartPolicy struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Max     int           `yaml:"max" json:"max"`         // consecutive failures before giving up
	Backoff time.Duration `yaml:"backoff" json:"backoff"` // base delay, multiplied per attempt
}

// DefaultRestartPolicy returns the default restart policy.
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{Enabled: true, Max: 5, Backoff: 2 * time.Second}
}

// Config holds sidecar manager configuration.
type Config struct {
	Port      int
	Mode      string
	NodeBin   string // explicit override, ahead of LOCAL_API_NODE_BIN
	Paths     Paths
	LogPath   string // sidecar output log file
	ConvexURL string
	Restart   RestartPolicy
}

// Status is a point-in-time snapshot of the sidecar.
type Status struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Restarts  int       `json:"restarts"`
	LastExit  string    `json:"last_exit,omitempty"`
}

// Hooks receive lifecycle notifications. Callbacks run outside the manager
// lock but must not block for long; they fire on the supervisor goroutine.
type Hooks struct {
	OnStart func(st Status)
	OnExit  func(st Status, err error, willRestart bool)
}

// Manager supervises the single sidecar child process.
type Manager struct {
	cfg     Config
	secrets func() map[string]string
	hooks   Hooks

	mu        sync.Mutex
	cmd       *exec.Cmd
	logFile   *os.File
	token     string
	runID     string
	startedAt time.Time
	restarts  int
	failures  int
	lastExit  string
	stopping  bool
	// restartPending is set while the supervisor sleeps in the restart
	// backoff; Stop clears it to make the shutdown final.
	restartPending bool
	waitDone       chan struct{}
}

// NewManager creates a sidecar manager. The secrets func is called at each
// start to snapshot the vault into the child environment; it may be nil.
func NewManager(cfg Config, secrets func() map[string]string, hooks Hooks) *Manager {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	if cfg.ConvexURL == "" {
		cfg.ConvexURL = ConvexURL
	}
	return &Manager{cfg: cfg, secrets: secrets, hooks: hooks}
}

// Token returns the auth token shared with the sidecar, generating it on
// first use. The token survives sidecar restarts within one shell run so
// the UI never has to re-fetch it.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenLocked()
}

func (m *Manager) tokenLocked() (string, error) {
	if m.token == "" {
		token, err := NewToken()
		if err != nil {
			return "", err
		}
		m.token = token
	}
	return m.token, nil
}

// Port returns the sidecar port.
func (m *Manager) Port() int {
	return m.cfg.Port
}

// Status returns a snapshot of the sidecar state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	st := Status{
		Running:  m.cmd != nil,
		RunID:    m.runID,
		Restarts: m.restarts,
		LastExit: m.lastExit,
	}
	if m.cmd != nil && m.cmd.Process != nil {
		st.PID = m.cmd.Process.Pid
		st.StartedAt = m.startedAt
	}
	return st
}

// Running reports whether the sidecar child is alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cmd != nil
}

// Start launches the sidecar. Starting while already running is a no-op.
// ctx bounds the supervision of this run: cancellation disables automatic
// restarts but does not kill the child (use Stop).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *Manager) startLocked(ctx context.Context) error {
	if m.cmd != nil {
		return nil
	}

	script := m.cfg.Paths.Script()
	if !isRegularFile(script) {
		return fmt.Errorf("sidecar script missing at %s", script)
	}

	nodeBin := m.cfg.NodeBin
	if nodeBin == "" || !isRegularFile(nodeBin) {
		resolved, err := ResolveNode(m.cfg.Paths)
		if err != nil {
			return err
		}
		nodeBin = resolved
	}

	token, err := m.tokenLocked()
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(m.cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open sidecar log %s: %w", m.cfg.LogPath, err)
	}

	scriptArg := SanitizePath(script)
	apiRoot := SanitizePath(m.cfg.Paths.APIRoot())

	cmd := exec.Command(nodeBin, scriptArg)
	hideConsole(cmd)
	// Explicit working directory avoids bare drive-letter CWDs that break
	// Node module resolution on Windows (EISDIR).
	cmd.Dir = filepath.Dir(script)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	env := append(os.Environ(),
		"LOCAL_API_PORT="+strconv.Itoa(m.cfg.Port),
		"LOCAL_API_RESOURCE_DIR="+apiRoot,
		"LOCAL_API_MODE="+m.cfg.Mode,
		"LOCAL_API_TOKEN="+token,
	)

	secretCount := 0
	if m.secrets != nil {
		for key, value := range m.secrets() {
			env = append(env, key+"="+value)
			secretCount++
		}
	}

	if m.cfg.ConvexURL != "" {
		env = append(env, "CONVEX_URL="+m.cfg.ConvexURL)
	} else if url := os.Getenv("CONVEX_URL"); url != "" {
		env = append(env, "CONVEX_URL="+url)
	}
	cmd.Env = env

	logging.Info("starting sidecar",
		"node", nodeBin, "script", scriptArg, "resource_root", apiRoot,
		"log", m.cfg.LogPath, "secrets", secretCount)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("launch sidecar: %w", err)
	}

	m.cmd = cmd
	m.logFile = logFile
	m.runID = uuid.NewString()
	m.startedAt = time.Now()
	m.waitDone = make(chan struct{})

	logging.Info("sidecar started", "pid", cmd.Process.Pid, "run_id", m.runID)

	st := m.statusLocked()
	go m.supervise(ctx, cmd, m.waitDone)

	if m.hooks.OnStart != nil {
		go m.hooks.OnStart(st)
	}
	return nil
}

// supervise reaps the child and decides whether its exit was expected.
func (m *Manager) supervise(ctx context.Context, cmd *exec.Cmd, done chan struct{}) {
	err := cmd.Wait()
	defer close(done)

	m.mu.Lock()
	if m.cmd != cmd {
		// A newer run replaced this one already.
		m.mu.Unlock()
		return
	}

	m.cmd = nil
	if m.logFile != nil {
		m.logFile.Close()
		m.logFile = nil
	}
	if err != nil {
		m.lastExit = err.Error()
	} else {
		m.lastExit = "exit status 0"
	}

	if m.stopping {
		m.stopping = false
		m.mu.Unlock()
		logging.Info("sidecar stopped")
		return
	}

	// Unexpected exit.
	if time.Since(m.startedAt) > stableAfter {
		m.failures = 0
	}
	m.failures++
	m.restarts++
	willRestart := m.cfg.Restart.Enabled && m.failures <= m.cfg.Restart.Max && ctx.Err() == nil
	m.restartPending = willRestart
	attempt := m.failures
	lastExit := m.lastExit
	st := m.statusLocked()
	m.mu.Unlock()

	logging.Error("sidecar exited unexpectedly",
		"error", lastExit, "attempt", attempt, "will_restart", willRestart)

	if m.hooks.OnExit != nil {
		m.hooks.OnExit(st, err, willRestart)
	}

	if !willRestart {
		return
	}

	delay := m.cfg.Restart.Backoff * time.Duration(attempt)
	select {
	case <-ctx.Done():
		m.mu.Lock()
		m.restartPending = false
		m.mu.Unlock()
		return
	case <-time.After(delay):
	}

	m.mu.Lock()
	if !m.restartPending {
		// Stop was called during the backoff.
		m.mu.Unlock()
		return
	}
	m.restartPending = false
	startErr := m.startLocked(ctx)
	m.mu.Unlock()
	if startErr != nil {
		logging.Error("sidecar restart failed", "error", startErr)
	}
}

// Stop kills the sidecar and waits for the supervisor to reap it. A restart
// pending in the backoff window is cancelled. Stopping a stopped sidecar is
// a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	cmd := m.cmd
	done := m.waitDone
	if cmd == nil {
		m.restartPending = false
		m.mu.Unlock()
		return nil
	}
	m.stopping = true
	m.mu.Unlock()

	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sidecar exit: %w", ctx.Err())
	}
}

// Restart stops and relaunches the sidecar. The auth token is preserved.
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.Stop(ctx); err != nil {
		return err
	}
	return m.Start(ctx)
}

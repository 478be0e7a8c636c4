// Package app wires the World Monitor shell together.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/koala73/worldmonitor-desktop/internal/api"
	"github.com/koala73/worldmonitor-desktop/internal/appdir"
	"github.com/koala73/worldmonitor-desktop/internal/cache"
	"github.com/koala73/worldmonitor-desktop/internal/config"
	"github.com/koala73/worldmonitor-desktop/internal/events"
	"github.com/koala73/worldmonitor-desktop/internal/health"
	"github.com/koala73/worldmonitor-desktop/internal/logging"
	"github.com/koala73/worldmonitor-desktop/internal/metrics"
	"github.com/koala73/worldmonitor-desktop/internal/notify"
	"github.com/koala73/worldmonitor-desktop/internal/secrets"
	"github.com/koala73/worldmonitor-desktop/internal/sidecar"
	"github.com/koala73/worldmonitor-desktop/internal/tray"
	"github.com/koala73/worldmonitor-desktop/internal/util"
)

// App is the World Monitor shell: it supervises the sidecar and exposes the
// control surfaces around it.
type App struct {
	config    *config.DesktopConfig
	vault     *secrets.Vault
	cache     *cache.Store
	events    *events.Recorder
	metrics   *metrics.Metrics
	collector *metrics.Collector
	notifier  *notify.Notifier
	sidecar   *sidecar.Manager
	monitor   *health.Monitor
	tray      *tray.Tray

	apiServer *http.Server
	apiToken  string
	apiAddr   string
	logDir    string

	running bool
	mu      sync.RWMutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates the shell from configuration.
func New(cfg *config.DesktopConfig) (*App, error) {
	logDir, err := appdir.LogDir()
	if err != nil {
		return nil, fmt.Errorf("resolve log dir: %w", err)
	}

	// Relative log outputs land in the app log directory.
	logCfg := cfg.Logging
	if logCfg.Output != "" && logCfg.Output != "stdout" && logCfg.Output != "stderr" &&
		!filepath.IsAbs(logCfg.Output) {
		logCfg.Output = filepath.Join(logDir, logCfg.Output)
	}
	if err := logging.Setup(logCfg); err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}

	dataDir, err := appdir.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	backend, err := secrets.NewSystemBackend()
	if err != nil {
		return nil, fmt.Errorf("open secrets backend: %w", err)
	}
	vault, err := secrets.Open(backend)
	if err != nil {
		return nil, fmt.Errorf("open secrets vault: %w", err)
	}

	cachePath := cfg.Cache.Path
	if cachePath == "" {
		cachePath = filepath.Join(dataDir, cache.FileName)
	}
	store := cache.NewStore(cachePath)
	recorder := events.NewRecorder(events.Config{MaxEntries: cfg.Events.MaxEntries})
	m := metrics.New()
	notifier := notify.New(cfg.Notifications.Enabled)

	a := &App{
		config:   cfg,
		vault:    vault,
		cache:    store,
		events:   recorder,
		metrics:  m,
		notifier: notifier,
		logDir:   logDir,
		done:     make(chan struct{}),
	}

	a.sidecar = sidecar.NewManager(sidecar.Config{
		Port:    cfg.Sidecar.Port,
		NodeBin: cfg.Sidecar.NodeBin,
		Paths: sidecar.Paths{
			ResourceDir: cfg.Sidecar.ResourceDir,
			DevRoot:     cfg.Sidecar.DevRoot,
			Dev:         cfg.Sidecar.Dev,
		},
		LogPath:   filepath.Join(logDir, sidecar.LogFileName),
		ConvexURL: cfg.Sidecar.ConvexURL,
		Restart: sidecar.RestartPolicy{
			Enabled: cfg.Sidecar.Restart.Enabled,
			Max:     cfg.Sidecar.Restart.Max,
			Backoff: cfg.Sidecar.Restart.Backoff.Duration(),
		},
	}, vault.All, sidecar.Hooks{
		OnStart: a.onSidecarStart,
		OnExit:  a.onSidecarExit,
	})

	a.collector = metrics.NewCollector(m, a.sidecar)

	checkerCfg := health.Config{
		Type:     cfg.Sidecar.HealthCheck.Type,
		Target:   fmt.Sprintf("127.0.0.1:%d", a.sidecar.Port()),
		Timeout:  cfg.Sidecar.HealthCheck.Timeout.Duration(),
		Path:     cfg.Sidecar.HealthCheck.Path,
		Interval: cfg.Sidecar.HealthCheck.Interval.Duration(),
	}
	checker := health.New(checkerCfg)
	if httpChecker, ok := checker.(*health.HTTPChecker); ok {
		if token, err := a.sidecar.Token(); err == nil {
			httpChecker.SetToken(token)
		}
	}
	a.monitor = health.NewMonitor(checker, checkerCfg.Interval)
	a.monitor.OnResult = a.onHealthResult
	a.monitor.OnChange = a.onHealthChange

	if cfg.Tray.Enabled {
		a.tray = tray.New(tray.Config{
			OnOpenDashboard: a.openDashboard,
			OnRestart:       a.restartSidecar,
			OnOpenLogs:      a.openLogs,
			OnOpenRepo:      a.openRepository,
			OnQuit:          a.Shutdown,
		})
	}

	return a, nil
}

// Start launches the sidecar and every enabled surface. It does not block;
// use Wait to block until shutdown.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	ctx, a.cancel = context.WithCancel(ctx)

	logging.Info("starting World Monitor shell")

	if err := a.sidecar.Start(ctx); err != nil {
		a.events.Error("sidecar start failed", err)
		logging.Error("failed to start sidecar", "error", err)
		// The shell stays up so the tray and API can report the failure
		// and retry.
	}

	a.collector.Start()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx)
	}()

	if a.config.Sidecar.Watch && a.config.Sidecar.Dev {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.sidecar.WatchScript(ctx); err != nil {
				logging.Warn("script watcher stopped", "error", err)
			}
		}()
	}

	if a.config.API.Enabled {
		if err := a.startAPI(ctx); err != nil {
			return err
		}
	}

	logging.Info("World Monitor shell started")
	return nil
}

func (a *App) startAPI(ctx context.Context) error {
	token := a.config.API.Token
	if token == "" {
		var err error
		token, err = sidecar.NewToken()
		if err != nil {
			return fmt.Errorf("generate api token: %w", err)
		}
	}
	a.mu.Lock()
	a.apiToken = token
	a.mu.Unlock()

	srv := api.New(api.Config{
		Sidecar: a.sidecar,
		Vault:   a.vault,
		Cache:   a.cache,
		Events:  a.events,
		Monitor: a.monitor,
		Metrics: a.metrics,
		Token:   token,
		LogDir:  a.logDir,
	})

	listener, err := net.Listen("tcp", a.config.API.Listen)
	if err != nil {
		return fmt.Errorf("listen control API: %w", err)
	}

	a.apiServer = &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.mu.Lock()
	a.apiAddr = listener.Addr().String()
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logging.Info("control API listening", "address", listener.Addr().String())
		if err := a.apiServer.Serve(listener); err != http.ErrServerClosed {
			logging.Error("control API server error", "error", err)
		}
	}()

	return nil
}

// APIAddr returns the control API's bound address, empty when disabled.
func (a *App) APIAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiAddr
}

// RunTray runs the system tray loop. Blocks until the tray quits; call from
// the main goroutine, some platforms require that.
func (a *App) RunTray(ctx context.Context) {
	if a.tray == nil {
		<-a.done
		return
	}
	a.tray.Run(ctx)
}

// Wait blocks until the shell has shut down.
func (a *App) Wait() {
	<-a.done
}

// APIToken returns the token guarding the control API for this run.
func (a *App) APIToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiToken
}

// Shutdown initiates an asynchronous shutdown.
func (a *App) Shutdown() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := a.Stop(ctx); err != nil {
			logging.Error("shutdown error", "error", err)
		}
	}()
}

// Stop stops the shell.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	logging.Info("stopping World Monitor shell")

	if a.cancel != nil {
		a.cancel()
	}

	errs := util.NewMultiError()

	if a.apiServer != nil {
		errs.Add(util.WrapError(a.apiServer.Shutdown(ctx), "control api shutdown"))
	}

	a.collector.Stop()

	if err := a.sidecar.Stop(ctx); err != nil {
		logging.Warn("sidecar stop", "error", err)
		errs.Add(util.WrapError(err, "sidecar stop"))
	}

	if a.tray != nil {
		a.tray.Quit()
	}

	// Wait for goroutines
	waitDone := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
		logging.Warn("grace period exceeded")
	}

	close(a.done)
	logging.Info("World Monitor shell stopped")
	logging.Close() //nolint:errcheck
	return errs.Err()
}

func (a *App) onSidecarStart(st sidecar.Status) {
	a.events.SidecarStarted(st.RunID, st.PID)
	a.collector.RecordSidecarStart()
	a.setTrayStatus(tray.StatusRunning)
}

func (a *App) onSidecarExit(st sidecar.Status, err error, willRestart bool) {
	exitErr := ""
	if err != nil {
		exitErr = err.Error()
	}
	a.events.SidecarExited(st.RunID, st.PID, exitErr)

	// The hook only fires for exits the shell did not ask for.
	a.collector.RecordSidecarExit(false, willRestart)

	if willRestart {
		a.events.SidecarRestarted(st.RunID, st.Restarts)
		a.setTrayStatus(tray.StatusDegraded)
		a.notifier.SidecarCrashed(true)
		return
	}

	if err != nil {
		a.setTrayStatus(tray.StatusError)
		a.notifier.SidecarCrashed(false)
	} else {
		a.setTrayStatus(tray.StatusStopped)
	}
}

func (a *App) onHealthResult(result health.Result) {
	a.collector.RecordHealthProbe(result.Healthy, result.Latency)
}

func (a *App) onHealthChange(result health.Result) {
	a.events.HealthChanged(result.Healthy, result.Error)
	if !a.sidecar.Running() {
		return
	}
	if result.Healthy {
		a.setTrayStatus(tray.StatusRunning)
	} else {
		a.setTrayStatus(tray.StatusDegraded)
	}
}

func (a *App) setTrayStatus(status tray.Status) {
	if a.tray != nil {
		a.tray.SetStatus(status)
	}
}

func (a *App) openDashboard() {
	url := fmt.Sprintf("http://127.0.0.1:%d", a.sidecar.Port())
	if err := util.OpenURL(url); err != nil {
		logging.Warn("failed to open dashboard", "error", err)
	}
}

func (a *App) openRepository() {
	if err := util.OpenURL("https://github.com/koala73/worldmonitor"); err != nil {
		logging.Warn("failed to open repository", "error", err)
	}
}

func (a *App) restartSidecar() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.sidecar.Restart(ctx); err != nil {
		a.events.Error("sidecar restart failed", err)
		logging.Error("failed to restart sidecar", "error", err)
	}
}

func (a *App) openLogs() {
	if err := util.OpenPath(a.logDir); err != nil {
		logging.Warn("failed to open log folder", "error", err)
	}
}

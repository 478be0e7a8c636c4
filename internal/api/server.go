// Package api provides the local control API for the World Monitor shell.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koala73/worldmonitor-desktop/internal/cache"
	"github.com/koala73/worldmonitor-desktop/internal/events"
	"github.com/koala73/worldmonitor-desktop/internal/health"
	"github.com/koala73/worldmonitor-desktop/internal/metrics"
	"github.com/koala73/worldmonitor-desktop/internal/secrets"
	"github.com/koala73/worldmonitor-desktop/internal/sidecar"
	"github.com/koala73/worldmonitor-desktop/internal/util"
	"github.com/koala73/worldmonitor-desktop/internal/version"
)

// API provides the local control API used by the CLI and the tray.
type API struct {
	sidecar  *sidecar.Manager
	vault    *secrets.Vault
	cache    *cache.Store
	events   *events.Recorder
	monitor  *health.Monitor
	metrics  *metrics.Metrics
	token    string
	logDir   string
	openURL  func(string) error
	openPath func(string) error
}

// Config holds API configuration.
type Config struct {
	Sidecar *sidecar.Manager
	Vault   *secrets.Vault
	Cache   *cache.Store
	Events  *events.Recorder
	Monitor *health.Monitor
	Metrics *metrics.Metrics
	Token   string
	LogDir  string
}

// New creates a new API server.
func New(cfg Config) *API {
	return &API{
		sidecar:  cfg.Sidecar,
		vault:    cfg.Vault,
		cache:    cfg.Cache,
		events:   cfg.Events,
		monitor:  cfg.Monitor,
		metrics:  cfg.Metrics,
		token:    cfg.Token,
		logDir:   cfg.LogDir,
		openURL:  util.OpenURL,
		openPath: util.OpenPath,
	}
}

// Handler returns the HTTP handler for the API.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(securityHeadersMiddleware)

	if a.metrics != nil {
		r.Use(a.metricsMiddleware)
	}

	// Auth middleware if token is set
	if a.token != "" {
		r.Use(a.authMiddleware)
	}

	// CORS for the local dashboard
	r.Use(corsMiddleware)

	a.addAPIRoutes(r)

	return r
}

func (a *API) addAPIRoutes(r chi.Router) {
	r.Get("/api/v1/health", a.handleHealth)
	r.Get("/api/v1/version", a.handleVersion)
	r.Get("/api/v1/runtime", a.handleRuntime)
	r.Get("/api/v1/token", a.handleToken)

	r.Route("/api/v1/sidecar", func(r chi.Router) {
		r.Get("/", a.handleSidecarStatus)
		r.Post("/restart", a.handleSidecarRestart)
	})

	r.Route("/api/v1/secrets", func(r chi.Router) {
		r.Get("/", a.handleListSecrets)
		r.Get("/keys", a.handleSupportedSecrets)
		r.Get("/{key}", a.handleGetSecret)
		r.Put("/{key}", a.handleSetSecret)
		r.Delete("/{key}", a.handleDeleteSecret)
	})

	r.Route("/api/v1/cache", func(r chi.Router) {
		r.Get("/", a.handleCacheKeys)
		r.Get("/{key}", a.handleCacheRead)
		r.Put("/{key}", a.handleCacheWrite)
		r.Delete("/{key}", a.handleCacheDelete)
	})

	r.Route("/api/v1/events", func(r chi.Router) {
		r.Get("/", a.handleGetEvents)
		r.Get("/last/{count}", a.handleGetLastEvents)
		r.Get("/errors", a.handleGetEventErrors)
		r.Delete("/", a.handleClearEvents)
	})

	r.Route("/api/v1/logs", func(r chi.Router) {
		r.Get("/", a.handleLogs)
		r.Post("/open", a.handleOpenLogs)
		r.Post("/sidecar/open", a.handleOpenSidecarLog)
	})

	r.Post("/api/v1/open-url", a.handleOpenURL)

	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}
}

// metricsMiddleware records request counts and durations per route pattern.
// The matched chi pattern keeps path-parameter values (secret names, cache
// keys) out of the label set.
func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}
		a.metrics.RecordRequest(r.Method, path, strconv.Itoa(ww.Status()), time.Since(start))
	})
}

func (a *API) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("Authorization")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		// Remove "Bearer " prefix if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		// Use constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			if a.metrics != nil {
				a.metrics.RecordAuthFailure()
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// Allow requests from localhost on any port; same-origin requests
		// carry no Origin header and need no CORS headers.
		allowedOrigin := ""
		if origin != "" && isLocalOrigin(origin) {
			allowedOrigin = origin
		}

		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isLocalOrigin checks if the origin is from localhost or 127.0.0.1
func isLocalOrigin(origin string) bool {
	localPrefixes := []string{
		"http://localhost",
		"https://localhost",
		"http://127.0.0.1",
		"https://127.0.0.1",
		"http://[::1]",
		"https://[::1]",
	}
	for _, prefix := range localPrefixes {
		if len(origin) >= len(prefix) && origin[:len(prefix)] == prefix {
			rest := origin[len(prefix):]
			if rest == "" || rest[0] == ':' || rest[0] == '/' {
				return true
			}
		}
	}
	return false
}

// securityHeadersMiddleware adds common security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		next.ServeHTTP(w, r)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}

	if a.monitor != nil {
		if last, ok := a.monitor.Last(); ok {
			if !last.Healthy {
				response["status"] = "degraded"
			}
			response["sidecar"] = last
		}
	}

	a.writeJSON(w, http.StatusOK, response)
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, version.GetInfo())
}

func (a *API) handleRuntime(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, version.GetRuntime())
}

// handleToken hands the sidecar connection details to the dashboard.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	token, err := a.sidecar.Token()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"port":  a.sidecar.Port(),
	})
}

func (a *API) handleSidecarStatus(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.sidecar.Status())
}

func (a *API) handleSidecarRestart(w http.ResponseWriter, r *http.Request) {
	if err := a.sidecar.Restart(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, a.sidecar.Status())
}

func (a *API) handleListSecrets(w http.ResponseWriter, r *http.Request) {
	// Key names only; values never leave the vault through this API.
	stored := a.vault.All()
	keys := make([]string, 0, len(stored))
	for key := range stored {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"keys":  keys,
		"count": len(keys),
	})
}

func (a *API) handleSupportedSecrets(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.vault.Keys())
}

// handleGetSecret returns a single secret value to the local UI. This is
// the only route that emits a value; the listings stay names-only.
func (a *API) handleGetSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, ok, err := a.vault.Get(key)
	if err != nil {
		if errors.Is(err, util.ErrUnsupportedKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "secret not set", http.StatusNotFound)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (a *API) handleSetSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := a.vault.Set(key, body.Value); err != nil {
		if errors.Is(err, util.ErrUnsupportedKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if a.events != nil {
		a.events.SecretChanged(key, "set")
	}
	if a.metrics != nil {
		a.metrics.RecordSecretMutation("set")
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "stored"})
}

func (a *API) handleDeleteSecret(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := a.vault.Delete(key); err != nil {
		if errors.Is(err, util.ErrUnsupportedKey) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if a.events != nil {
		a.events.SecretChanged(key, "deleted")
	}
	if a.metrics != nil {
		a.metrics.RecordSecretMutation("deleted")
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (a *API) handleCacheKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := a.cache.Keys()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, keys)
}

func (a *API) handleCacheRead(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, ok, err := a.cache.Read(key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if a.metrics != nil {
		a.metrics.RecordCacheRead(ok)
	}
	if !ok {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(value) //nolint:errcheck
}

func (a *API) handleCacheWrite(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	value, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := a.cache.Write(key, value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if a.metrics != nil {
		a.metrics.RecordCacheWrite()
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "stored"})
}

func (a *API) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	if err := a.cache.Delete(key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (a *API) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		a.writeJSON(w, http.StatusOK, []events.Entry{})
		return
	}
	a.writeJSON(w, http.StatusOK, a.events.GetEntries())
}

func (a *API) handleGetLastEvents(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		a.writeJSON(w, http.StatusOK, []events.Entry{})
		return
	}

	count := 100
	if n, err := strconv.Atoi(chi.URLParam(r, "count")); err == nil && n > 0 {
		count = n
	}
	a.writeJSON(w, http.StatusOK, a.events.GetLastEntries(count))
}

func (a *API) handleGetEventErrors(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		a.writeJSON(w, http.StatusOK, []events.Entry{})
		return
	}
	a.writeJSON(w, http.StatusOK, a.events.FindErrors())
}

func (a *API) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if a.events != nil {
		a.events.Clear()
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "cleared"})
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{
		"dir":     a.logDir,
		"shell":   "desktop.log",
		"sidecar": sidecar.LogFileName,
	})
}

func (a *API) handleOpenLogs(w http.ResponseWriter, r *http.Request) {
	if err := a.openPath(a.logDir); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "opened"})
}

// handleOpenSidecarLog opens the sidecar log in the platform opener,
// creating an empty file first so the opener never fails on a fresh install.
func (a *API) handleOpenSidecarLog(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(a.logDir, sidecar.LogFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	f.Close()
	if err := a.openPath(path); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "opened", "path": path})
}

func (a *API) handleOpenURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	if err := a.openURL(body.URL); err != nil {
		if errors.Is(err, util.ErrSchemeBlocked) {
			http.Error(w, err.Error(), http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"message": "opened"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

package ctl

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIClient(t *testing.T) {
	client := NewAPIClient("http://127.0.0.1:46124", "test-token")
	assert.NotNil(t, client)
	assert.Equal(t, "http://127.0.0.1:46124", client.BaseURL)
	assert.Equal(t, "test-token", client.Token)
	assert.NotNil(t, client.Client)
}

func TestAPIClient_doRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/api/v1/test", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "test-token")
	resp, err := client.doRequest("GET", "/api/v1/test", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIClient_doRequest_NoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	resp, err := client.doRequest("GET", "/api/v1/test", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIClient_getJSON_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal error"}`))
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	var result map[string]interface{}
	err := client.getJSON("/api/v1/test", &result)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API error")
}

func TestAPIClient_ShowStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sidecar/", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"running":  true,
			"pid":      42,
			"run_id":   "abc-123",
			"restarts": 1,
		})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.ShowStatus())
}

func TestAPIClient_CheckHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"sidecar": map[string]interface{}{"healthy": true},
		})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.CheckHealth())
}

func TestAPIClient_RestartSidecar(t *testing.T) {
	var called bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/sidecar/restart", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"running": true})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.RestartSidecar())
	assert.True(t, called)
}

func TestAPIClient_RestartSidecar_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "script missing", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	err := client.RestartSidecar()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script missing")
}

func TestAPIClient_TailEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/events/last/5", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"timestamp": "2026-01-02T10:30:00Z", "type": "sidecar_started", "message": "sidecar started (pid 42)"},
		})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.TailEvents(5))
}

func TestAPIClient_ClearEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		assert.Equal(t, "/api/v1/events/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "cleared"})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.ClearEvents())
}

func TestAPIClient_CacheCommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "GET" && r.URL.Path == "/api/v1/cache/":
			json.NewEncoder(w).Encode([]string{"selectedCity"})
		case r.Method == "GET" && r.URL.Path == "/api/v1/cache/selectedCity":
			w.Write([]byte(`{"name":"Reykjavik"}`))
		case r.Method == "DELETE" && r.URL.Path == "/api/v1/cache/selectedCity":
			json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.ListCacheKeys())
	require.NoError(t, client.GetCacheEntry("selectedCity"))
	require.NoError(t, client.DeleteCacheEntry("selectedCity"))
}

func TestAPIClient_OpenURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/v1/open-url", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"url":"https://worldmonitor.app"}`, string(body))
		json.NewEncoder(w).Encode(map[string]string{"message": "opened"})
	}))
	defer server.Close()

	client := NewAPIClient(server.URL, "")
	require.NoError(t, client.OpenURL("https://worldmonitor.app"))
}

func TestNewCommands(t *testing.T) {
	root := NewCommands()
	assert.Equal(t, "ctl", root.Use)

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	for _, want := range []string{"status", "health", "restart", "events", "cache", "logs", "open"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

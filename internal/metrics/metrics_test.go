package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	m := New()

	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.SidecarStarts == nil {
		t.Error("SidecarStarts is nil")
	}
	if m.SidecarRestarts == nil {
		t.Error("SidecarRestarts is nil")
	}
	if m.SidecarUnexpectedExits == nil {
		t.Error("SidecarUnexpectedExits is nil")
	}
	if m.SidecarUp == nil {
		t.Error("SidecarUp is nil")
	}
	if m.HealthProbes == nil {
		t.Error("HealthProbes is nil")
	}
	if m.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
	if m.SecretMutations == nil {
		t.Error("SecretMutations is nil")
	}
	if m.CacheReads == nil {
		t.Error("CacheReads is nil")
	}
	if m.Uptime == nil {
		t.Error("Uptime is nil")
	}
	if m.Registry() == nil {
		t.Error("Registry() is nil")
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.SidecarStarts.Inc()
	m.SidecarUp.Set(1)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("metrics handler status = %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "worldmonitor_sidecar_starts_total 1") {
		t.Error("missing sidecar starts counter")
	}
	if !strings.Contains(body, "worldmonitor_sidecar_up 1") {
		t.Error("missing sidecar up gauge")
	}
}

type fakeSidecar struct{ running bool }

func (f *fakeSidecar) Running() bool { return f.running }

func TestCollectorRecorders(t *testing.T) {
	m := New()
	c := NewCollector(m, &fakeSidecar{running: true})

	c.RecordSidecarStart()
	c.RecordSidecarExit(false, true)
	c.RecordHealthProbe(true, 10*time.Millisecond)
	c.RecordHealthProbe(false, 20*time.Millisecond)
	m.RecordRequest("GET", "/api/v1/health", "200", 5*time.Millisecond)
	m.RecordAuthFailure()
	m.RecordSecretMutation("set")
	m.RecordCacheRead(true)
	m.RecordCacheRead(false)
	m.RecordCacheWrite()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()

	checks := []string{
		"worldmonitor_sidecar_starts_total 1",
		"worldmonitor_sidecar_unexpected_exits_total 1",
		"worldmonitor_sidecar_restarts_total 1",
		`worldmonitor_health_probes_total{result="healthy"} 1`,
		`worldmonitor_health_probes_total{result="unhealthy"} 1`,
		`worldmonitor_api_requests_total{method="GET",path="/api/v1/health",status="200"} 1`,
		"worldmonitor_api_auth_failures_total 1",
		`worldmonitor_secret_mutations_total{action="set"} 1`,
		`worldmonitor_cache_reads_total{result="hit"} 1`,
		`worldmonitor_cache_reads_total{result="miss"} 1`,
		"worldmonitor_cache_writes_total 1",
	}
	for _, want := range checks {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCollectorStartStop(t *testing.T) {
	m := New()
	c := NewCollector(m, &fakeSidecar{running: true})

	c.Start()
	c.Start() // second start is a no-op
	time.Sleep(50 * time.Millisecond)
	c.Stop()
	c.Stop() // second stop is a no-op

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "worldmonitor_sidecar_up 1") {
		t.Error("collector did not sample sidecar state")
	}
}

package sidecar

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHarness fakes out a dev-layout repo with a controllable "node" binary.
type testHarness struct {
	cfg     Config
	logPath string
}

func newHarness(t *testing.T, nodeScript string) *testHarness {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake node runtime uses shell scripts")
	}

	root := t.TempDir()
	scriptPath := filepath.Join(root, "sidecar", ScriptName)
	require.NoError(t, os.MkdirAll(filepath.Dir(scriptPath), 0755))
	require.NoError(t, os.WriteFile(scriptPath, []byte("// sidecar entry\n"), 0644))

	nodeBin := filepath.Join(root, "fake-node")
	require.NoError(t, os.WriteFile(nodeBin, []byte(nodeScript), 0755))

	logPath := filepath.Join(t.TempDir(), LogFileName)
	return &testHarness{
		cfg: Config{
			Port:    45999,
			NodeBin: nodeBin,
			Paths:   Paths{Dev: true, DevRoot: root},
			LogPath: logPath,
		},
		logPath: logPath,
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{32}$`), a)
	assert.NotEqual(t, a, b)
}

func TestManager_StartStop(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nsleep 60\n")
	m := NewManager(h.cfg, nil, Hooks{})

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Running())

	st := m.Status()
	assert.True(t, st.Running)
	assert.NotZero(t, st.PID)
	assert.NotEmpty(t, st.RunID)

	// Starting again is a no-op: same pid.
	require.NoError(t, m.Start(ctx))
	assert.Equal(t, st.PID, m.Status().PID)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
	assert.False(t, m.Running())

	// Stopping a stopped sidecar is a no-op.
	require.NoError(t, m.Stop(stopCtx))
}

func TestManager_MissingScript(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nsleep 60\n")
	h.cfg.Paths.DevRoot = t.TempDir() // no sidecar/ underneath

	m := NewManager(h.cfg, nil, Hooks{})
	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sidecar script missing")
}

func TestManager_EnvInjection(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "env.out")
	t.Setenv("SIDECAR_TEST_ENV_OUT", outPath)

	// The baked-in deployment URL wins over whatever the parent env carries.
	t.Setenv("CONVEX_URL", "https://runtime.example")

	h := newHarness(t, "#!/bin/sh\nenv > \"$SIDECAR_TEST_ENV_OUT\"\nsleep 60\n")
	h.cfg.ConvexURL = "https://buildtime.example"
	m := NewManager(h.cfg, func() map[string]string {
		return map[string]string{"GROQ_API_KEY": "gsk_test"}
	}, Hooks{})

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(outPath)
		return err == nil && len(data) > 0
	}, 5*time.Second, 50*time.Millisecond)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	env := string(data)

	token, err := m.Token()
	require.NoError(t, err)

	assert.Contains(t, env, "LOCAL_API_PORT=45999")
	assert.Contains(t, env, "LOCAL_API_MODE="+DefaultMode)
	assert.Contains(t, env, "LOCAL_API_TOKEN="+token)
	assert.Contains(t, env, "GROQ_API_KEY=gsk_test")
	assert.Contains(t, env, "LOCAL_API_RESOURCE_DIR="+h.cfg.Paths.APIRoot())
	assert.Contains(t, env, "CONVEX_URL=https://buildtime.example")
	assert.NotContains(t, env, "CONVEX_URL=https://runtime.example")
}

func TestManager_ConvexURLEnvFallback(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "env.out")
	t.Setenv("SIDECAR_TEST_ENV_OUT", outPath)
	t.Setenv("CONVEX_URL", "https://runtime.example")

	h := newHarness(t, "#!/bin/sh\nenv > \"$SIDECAR_TEST_ENV_OUT\"\nsleep 60\n")
	m := NewManager(h.cfg, nil, Hooks{})

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(outPath)
		return err == nil && len(data) > 0
	}, 5*time.Second, 50*time.Millisecond)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "CONVEX_URL=https://runtime.example")
}

func TestManager_TokenStableAcrossRestarts(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nsleep 60\n")
	m := NewManager(h.cfg, nil, Hooks{})

	ctx := context.Background()
	token1, err := m.Token()
	require.NoError(t, err)

	require.NoError(t, m.Start(ctx))
	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, m.Restart(stopCtx))
	defer func() { _ = m.Stop(stopCtx) }()

	token2, err := m.Token()
	require.NoError(t, err)
	assert.Equal(t, token1, token2)
}

func TestManager_RestartsOnCrash(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nexit 7\n")
	h.cfg.Restart = RestartPolicy{Enabled: true, Max: 2, Backoff: 10 * time.Millisecond}

	var exits atomic.Int32
	var sawRestartIntent atomic.Bool
	m := NewManager(h.cfg, nil, Hooks{
		OnExit: func(st Status, err error, willRestart bool) {
			exits.Add(1)
			if willRestart {
				sawRestartIntent.Store(true)
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))

	// Crash, restart, crash, give up: Max=2 failures then stop retrying.
	require.Eventually(t, func() bool {
		return exits.Load() >= 3 && !m.Running()
	}, 10*time.Second, 20*time.Millisecond)

	assert.True(t, sawRestartIntent.Load())
	st := m.Status()
	assert.GreaterOrEqual(t, st.Restarts, 2)
	assert.Contains(t, st.LastExit, "7")
}

func TestManager_StopCancelsPendingRestart(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nexit 1\n")
	h.cfg.Restart = RestartPolicy{Enabled: true, Max: 5, Backoff: 400 * time.Millisecond}

	exited := make(chan struct{}, 8)
	m := NewManager(h.cfg, nil, Hooks{
		OnExit: func(st Status, err error, willRestart bool) {
			exited <- struct{}{}
		},
	})

	require.NoError(t, m.Start(context.Background()))
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("sidecar exit not observed")
	}

	// The supervisor is now sleeping in the restart backoff.
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))

	time.Sleep(time.Second)
	assert.False(t, m.Running())
	assert.Equal(t, 1, m.Status().Restarts)
}

func TestManager_NoRestartWhenDisabled(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\nexit 1\n")
	h.cfg.Restart = RestartPolicy{Enabled: false}

	exited := make(chan struct{}, 1)
	m := NewManager(h.cfg, nil, Hooks{
		OnExit: func(st Status, err error, willRestart bool) {
			assert.False(t, willRestart)
			exited <- struct{}{}
		},
	})

	require.NoError(t, m.Start(context.Background()))
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("sidecar exit not observed")
	}
	assert.False(t, m.Running())
}

func TestManager_SidecarOutputGoesToLog(t *testing.T) {
	h := newHarness(t, "#!/bin/sh\necho 'local api listening'\nsleep 60\n")
	m := NewManager(h.cfg, nil, Hooks{})

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	}()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(h.logPath)
		return err == nil && strings.Contains(string(data), "local api listening")
	}, 5*time.Second, 50*time.Millisecond)
}

package secrets

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koala73/worldmonitor-desktop/internal/util"
)

func TestIsSupportedKey(t *testing.T) {
	assert.True(t, IsSupportedKey("GROQ_API_KEY"))
	assert.True(t, IsSupportedKey("WORLDMONITOR_API_KEY"))
	assert.False(t, IsSupportedKey("AWS_SECRET_ACCESS_KEY"))
	assert.False(t, IsSupportedKey(""))
}

func TestOpen_EmptyBackend(t *testing.T) {
	v, err := Open(NewMemoryBackend())
	require.NoError(t, err)
	assert.Equal(t, 0, v.Count())
	assert.Len(t, v.Keys(), len(SupportedKeys))
}

func TestOpen_LoadsVaultFilteringUnsupportedAndEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	vaultJSON, err := json.Marshal(map[string]string{
		"GROQ_API_KEY":    " gsk_123 ",
		"FINNHUB_API_KEY": "   ",
		"NOT_A_REAL_KEY":  "value",
	})
	require.NoError(t, err)
	require.NoError(t, backend.WriteVault(string(vaultJSON)))

	v, err := Open(backend)
	require.NoError(t, err)

	value, ok, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gsk_123", value, "values are trimmed on load")

	_, ok, err = v.Get("FINNHUB_API_KEY")
	require.NoError(t, err)
	assert.False(t, ok, "blank values are dropped")

	assert.Equal(t, 1, v.Count())
}

func TestOpen_MigratesLegacyItems(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetLegacy("GROQ_API_KEY", "gsk_legacy")
	backend.SetLegacy("OTX_API_KEY", "  otx_val  ")
	backend.SetLegacy("OLLAMA_MODEL", "")

	v, err := Open(backend)
	require.NoError(t, err)

	value, ok, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gsk_legacy", value)

	value, ok, err = v.Get("OTX_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "otx_val", value)

	// Consolidated vault written, legacy items removed.
	data, err := backend.ReadVault()
	require.NoError(t, err)
	var stored map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &stored))
	assert.Equal(t, "gsk_legacy", stored["GROQ_API_KEY"])
	assert.Equal(t, 0, backend.LegacyCount())
}

func TestOpen_MigrationKeepsLegacyOnWriteFailure(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SetLegacy("GROQ_API_KEY", "gsk_legacy")
	backend.FailVaultWrite = true

	v, err := Open(backend)
	require.NoError(t, err)

	// Cache is still usable for this run, but legacy items survive so the
	// next run can retry the migration.
	assert.Equal(t, 1, v.Count())
	assert.Equal(t, 1, backend.LegacyCount())
}

func TestSetGetDelete(t *testing.T) {
	v, err := Open(NewMemoryBackend())
	require.NoError(t, err)

	require.NoError(t, v.Set("FRED_API_KEY", "  fred123  "))
	value, ok, err := v.Get("FRED_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fred123", value)

	require.NoError(t, v.Delete("FRED_API_KEY"))
	_, ok, err = v.Get("FRED_API_KEY")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSet_EmptyValueDeletes(t *testing.T) {
	v, err := Open(NewMemoryBackend())
	require.NoError(t, err)

	require.NoError(t, v.Set("EIA_API_KEY", "value"))
	require.NoError(t, v.Set("EIA_API_KEY", "   "))
	_, ok, err := v.Get("EIA_API_KEY")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnsupportedKeyRejected(t *testing.T) {
	v, err := Open(NewMemoryBackend())
	require.NoError(t, err)

	assert.ErrorIs(t, v.Set("RANDOM_KEY", "x"), util.ErrUnsupportedKey)
	assert.ErrorIs(t, v.Delete("RANDOM_KEY"), util.ErrUnsupportedKey)
	_, _, err = v.Get("RANDOM_KEY")
	assert.ErrorIs(t, err, util.ErrUnsupportedKey)
}

func TestSet_PersistFailureLeavesCacheUnchanged(t *testing.T) {
	backend := NewMemoryBackend()
	v, err := Open(backend)
	require.NoError(t, err)
	require.NoError(t, v.Set("GROQ_API_KEY", "before"))

	backend.FailVaultWrite = true
	assert.Error(t, v.Set("GROQ_API_KEY", "after"))

	value, ok, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "before", value, "cache must not run ahead of a failed persist")
}

func TestAll_ReturnsCopy(t *testing.T) {
	v, err := Open(NewMemoryBackend())
	require.NoError(t, err)
	require.NoError(t, v.Set("GROQ_API_KEY", "x"))

	all := v.All()
	all["GROQ_API_KEY"] = "mutated"

	value, _, err := v.Get("GROQ_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "x", value)
}

func TestFileBackend_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "secrets-vault.json")
	backend := NewFileBackend(path)

	_, err := backend.ReadVault()
	assert.ErrorIs(t, err, util.ErrNotFound)

	require.NoError(t, backend.WriteVault(`{"GROQ_API_KEY":"abc"}`))
	data, err := backend.ReadVault()
	require.NoError(t, err)
	assert.JSONEq(t, `{"GROQ_API_KEY":"abc"}`, data)

	_, err = backend.ReadLegacy("GROQ_API_KEY")
	assert.ErrorIs(t, err, util.ErrNotFound)
	assert.NoError(t, backend.DeleteLegacy("GROQ_API_KEY"))
}

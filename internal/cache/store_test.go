package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), FileName))
}

func TestRead_MissingFileIsAbsentNotError(t *testing.T) {
	s := newTestStore(t)
	value, ok, err := s.Read("layers")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, value)
}

func TestWriteRead_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	payload := json.RawMessage(`{"zoom":4,"center":[12.5,41.9]}`)
	require.NoError(t, s.Write("map-state", payload))

	value, ok, err := s.Read("map-state")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(payload), string(value))

	// Missing key in an existing file.
	_, ok, err = s.Read("other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWrite_RejectsInvalidJSON(t *testing.T) {
	s := newTestStore(t)
	err := s.Write("bad", json.RawMessage(`{"unterminated`))
	assert.Error(t, err)
}

func TestWrite_PreservesOtherKeys(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("a", json.RawMessage(`1`)))
	require.NoError(t, s.Write("b", json.RawMessage(`"two"`)))
	require.NoError(t, s.Write("a", json.RawMessage(`3`)))

	value, ok, err := s.Read("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"two"`, string(value))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0644))

	s := NewStore(path)
	_, ok, err := s.Read("anything")
	require.NoError(t, err)
	assert.False(t, ok)

	// Writing after corruption starts a fresh object.
	require.NoError(t, s.Write("k", json.RawMessage(`true`)))
	value, ok, err := s.Read("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "true", string(value))
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("k", json.RawMessage(`1`)))
	require.NoError(t, s.Delete("k"))
	_, ok, err := s.Read("k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Absent key is a no-op.
	require.NoError(t, s.Delete("missing"))
}

func TestFileIsPrettyPrinted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Write("k", json.RawMessage(`{"nested":true}`)))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  ")
}

func TestConcurrentWrites(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			assert.NoError(t, s.Write(key, json.RawMessage(`1`)))
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}

package sidecar

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeNode(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755))
	return path
}

func TestResolveNode_EnvOverride(t *testing.T) {
	fake := writeFakeNode(t, filepath.Join(t.TempDir(), "custom-node"))
	t.Setenv(EnvNodeBin, fake)

	resolved, err := ResolveNode(Paths{Dev: true, DevRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, fake, resolved)
}

func TestResolveNode_EnvOverrideInvalidFallsThrough(t *testing.T) {
	t.Setenv(EnvNodeBin, filepath.Join(t.TempDir(), "does-not-exist"))
	// Empty PATH so only the bundled runtime can match.
	t.Setenv("PATH", "")

	dir := t.TempDir()
	bundled := writeFakeNode(t, filepath.Join(dir, "sidecar", "node", nodeBinaryName()))

	resolved, err := ResolveNode(Paths{ResourceDir: dir})
	require.NoError(t, err)
	assert.Equal(t, bundled, resolved)
}

func TestResolveNode_BundledIgnoredInDevMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("PATH-based fake binaries are not portable to windows")
	}

	dir := t.TempDir()
	writeFakeNode(t, filepath.Join(dir, "sidecar", "node", nodeBinaryName()))
	pathDir := t.TempDir()
	fromPath := writeFakeNode(t, filepath.Join(pathDir, "node"))

	t.Setenv(EnvNodeBin, "")
	t.Setenv("PATH", pathDir)

	resolved, err := ResolveNode(Paths{Dev: true, DevRoot: dir, ResourceDir: dir})
	require.NoError(t, err)
	assert.Equal(t, fromPath, resolved)
}

func TestResolveNode_NotFound(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("common install locations may exist on windows hosts")
	}
	t.Setenv(EnvNodeBin, "")
	t.Setenv("PATH", t.TempDir())

	// Only hosts without a system node in the common locations can assert
	// a hard failure; otherwise assert resolution found one of them.
	resolved, err := ResolveNode(Paths{Dev: true, DevRoot: t.TempDir()})
	if err != nil {
		assert.Contains(t, err.Error(), EnvNodeBin)
		return
	}
	assert.Contains(t, commonNodeLocations(), resolved)
}

func TestNodeBinaryName(t *testing.T) {
	name := nodeBinaryName()
	if runtime.GOOS == "windows" {
		assert.Equal(t, "node.exe", name)
	} else {
		assert.Equal(t, "node", name)
	}
}

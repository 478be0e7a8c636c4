package sidecar

import (
	"os"
	"path/filepath"
)

const (
	// ScriptName is the sidecar entry point inside the sidecar directory.
	ScriptName = "local-api-server.mjs"

	// liftedDir is where some bundlers relocate resources that live above
	// the app directory in the source tree.
	liftedDir = "_up_"
)

// Paths resolves the sidecar script and resource root across the two
// packaging layouts the shell ships in.
//
// Dev mode runs straight out of the repo: <DevRoot>/sidecar/<script>, with
// the repo root as the API resource root. Packaged builds keep everything
// under ResourceDir, but the api/ tree may sit either directly in it or
// under the lifted _up_/ directory depending on how the bundle was built.
type Paths struct {
	// ResourceDir is the packaged resources directory.
	ResourceDir string

	// DevRoot is the repository root when running unpackaged.
	DevRoot string

	// Dev selects the repository layout over the packaged one.
	Dev bool
}

// Script returns the path to the sidecar entry script.
func (p Paths) Script() string {
	if p.Dev {
		return filepath.Join(p.DevRoot, "sidecar", ScriptName)
	}
	return filepath.Join(p.ResourceDir, "sidecar", ScriptName)
}

// APIRoot returns the directory containing the bundled api/ tree the sidecar
// serves from. Packaged builds probe the direct layout first, then the
// lifted one, and fall back to the resource dir so the sidecar can report a
// useful error itself.
func (p Paths) APIRoot() string {
	if p.Dev {
		return p.DevRoot
	}

	if dirExists(filepath.Join(p.ResourceDir, "api")) {
		return p.ResourceDir
	}
	lifted := filepath.Join(p.ResourceDir, liftedDir)
	if dirExists(filepath.Join(lifted, "api")) {
		return lifted
	}
	return p.ResourceDir
}

// BundledNode returns the path of the bundled Node runtime for this platform.
func (p Paths) BundledNode() string {
	return filepath.Join(p.ResourceDir, "sidecar", "node", nodeBinaryName())
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package sidecar

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/koala73/worldmonitor-desktop/internal/logging"
)

// EnvNodeBin overrides Node runtime resolution with an explicit binary path.
const EnvNodeBin = "LOCAL_API_NODE_BIN"

func nodeBinaryName() string {
	if runtime.GOOS == "windows" {
		return "node.exe"
	}
	return "node"
}

// commonNodeLocations are probed last, for installs that never touch PATH
// (Homebrew on a fresh shell, the Windows MSI when launched from Finder
// or Explorer equivalents).
func commonNodeLocations() []string {
	if runtime.GOOS == "windows" {
		return []string{
			`C:\Program Files\nodejs\node.exe`,
			`C:\Program Files (x86)\nodejs\node.exe`,
		}
	}
	return []string{
		"/opt/homebrew/bin/node",
		"/usr/local/bin/node",
		"/usr/bin/node",
		"/opt/local/bin/node",
	}
}

// ResolveNode locates the Node.js runtime for the sidecar. Resolution order:
// the LOCAL_API_NODE_BIN override, the bundled runtime (packaged builds
// only), PATH, then common install locations.
func ResolveNode(paths Paths) (string, error) {
	if explicit := os.Getenv(EnvNodeBin); explicit != "" {
		if isRegularFile(explicit) {
			return explicit, nil
		}
		logging.Warn("node binary override is not a valid file, falling through",
			"env", EnvNodeBin, "path", explicit)
	}

	if !paths.Dev {
		if bundled := paths.BundledNode(); isRegularFile(bundled) {
			return bundled, nil
		}
	}

	if found, err := exec.LookPath(nodeBinaryName()); err == nil {
		if resolved, err := filepath.EvalSymlinks(found); err == nil {
			return resolved, nil
		}
		return found, nil
	}

	for _, candidate := range commonNodeLocations() {
		if isRegularFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("node.js executable not found: install Node 18+ or set %s", EnvNodeBin)
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

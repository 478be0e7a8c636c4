package util

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// ValidateExternalURL checks that a URL is safe to hand to the OS opener.
// Only https is allowed for remote hosts; http is permitted for loopback so
// the UI can link to the sidecar and the control API. Everything else
// (file:, custom schemes) is rejected before it reaches the shell.
func ValidateExternalURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		return parsed, nil
	case "http":
		switch parsed.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return parsed, nil
		}
		return nil, WrapErrorf(ErrSchemeBlocked, "http only allowed for localhost, got host %q", parsed.Hostname())
	default:
		return nil, WrapErrorf(ErrSchemeBlocked, "scheme %q", parsed.Scheme)
	}
}

// OpenURL validates a URL against the external-URL policy and opens it in
// the system default browser.
func OpenURL(raw string) error {
	parsed, err := ValidateExternalURL(raw)
	if err != nil {
		return err
	}
	return openInShell(parsed.String())
}

// OpenPath opens a filesystem path (file or directory) with the platform's
// default handler. No policy applies; callers only pass paths the shell
// itself resolved.
func OpenPath(path string) error {
	return openInShell(path)
}

func openInShell(arg string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", arg)
	case "windows":
		cmd = exec.Command("explorer", arg)
	default:
		cmd = exec.Command("xdg-open", arg)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", arg, err)
	}
	return nil
}

// Package secrets provides the API credential vault for the desktop shell.
//
// Secrets live in the platform keychain as a single consolidated item
// (service "world-monitor", account "secrets-vault") holding a JSON object.
// Consolidation matters on macOS: every individual keychain read triggers a
// user prompt, so the vault is read once at startup and cached in memory.
// Older installs stored one keychain item per key; those are migrated into
// the vault on first load and then removed.
package secrets

import "slices"

const (
	// ServiceName is the keychain service attribute for all shell secrets.
	ServiceName = "world-monitor"

	// VaultAccount is the keychain account holding the consolidated vault.
	VaultAccount = "secrets-vault"
)

// SupportedKeys is the allow-list of secret keys the shell will store and
// inject into the sidecar environment. Anything else is rejected.
var SupportedKeys = []string{
	"GROQ_API_KEY",
	"OPENROUTER_API_KEY",
	"FRED_API_KEY",
	"EIA_API_KEY",
	"CLOUDFLARE_API_TOKEN",
	"ACLED_ACCESS_TOKEN",
	"URLHAUS_AUTH_KEY",
	"OTX_API_KEY",
	"ABUSEIPDB_API_KEY",
	"WINGBITS_API_KEY",
	"WS_RELAY_URL",
	"VITE_OPENSKY_RELAY_URL",
	"OPENSKY_CLIENT_ID",
	"OPENSKY_CLIENT_SECRET",
	"AISSTREAM_API_KEY",
	"VITE_WS_RELAY_URL",
	"FINNHUB_API_KEY",
	"NASA_FIRMS_API_KEY",
	"OLLAMA_API_URL",
	"OLLAMA_MODEL",
	"WORLDMONITOR_API_KEY",
}

// IsSupportedKey reports whether key is on the allow-list.
func IsSupportedKey(key string) bool {
	return slices.Contains(SupportedKeys, key)
}

// Backend is the storage layer beneath the vault. Implementations exist for
// the macOS Keychain, a file fallback on other platforms, and memory (tests).
type Backend interface {
	// ReadVault returns the consolidated vault JSON, or util.ErrNotFound.
	ReadVault() (string, error)

	// WriteVault replaces the consolidated vault JSON.
	WriteVault(data string) error

	// ReadLegacy returns a pre-consolidation per-key secret, or util.ErrNotFound.
	ReadLegacy(key string) (string, error)

	// DeleteLegacy removes a pre-consolidation per-key secret. Missing items
	// are not an error.
	DeleteLegacy(key string) error
}

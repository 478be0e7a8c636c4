package sidecar

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewToken generates the per-run auth token shared with the sidecar via
// LOCAL_API_TOKEN. The sidecar rejects local API requests without it, which
// keeps other processes on the machine from reaching the port.
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate sidecar token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

package sidecar

import "strings"

// SanitizePath strips Windows extended-length path prefixes before a path is
// handed to the Node child. Node's module resolution chokes on `\\?\` paths,
// and UNC semantics must survive the strip: `\\?\UNC\server\share\...`
// becomes `\\server\share\...`, not `UNC\server\share\...`.
// Paths without a prefix pass through unchanged.
func SanitizePath(p string) string {
	if stripped, ok := strings.CutPrefix(p, `\\?\UNC\`); ok {
		return `\\` + stripped
	}
	if stripped, ok := strings.CutPrefix(p, `\\?\`); ok {
		return stripped
	}
	return p
}

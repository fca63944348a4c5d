// Package security holds path and filename checks applied to values that
// arrive from input files and HTTP requests.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolveWithin joins a path taken from an input file onto root and
// rejects it if it would land outside root. Absolute paths and ".."
// escapes are refused; the check is lexical so it works for any
// filesystem the caller reads through.
func ResolveWithin(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("path traversal detected: %s must be relative to %s", rel, root)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("path traversal detected: %s attempts to escape %s", rel, root)
	}
	return filepath.Join(root, clean), nil
}

// SanitizeFilename makes a safe filename from an arbitrary string. It replaces
// any characters that are not ASCII letters, digits, dot, underscore or dash
// with an underscore, collapses repeated underscores and caps the length.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	const maxLen = 128
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// Package security holds checks applied to names that end up in file
// system paths.
package security

import (
	"fmt"
	"strings"
)

// maxNameLen bounds the length of a sanitised name.
const maxNameLen = 128

// SanitizeFilename makes a safe file name from an arbitrary string. Runs of
// characters other than ASCII letters, digits, dot, underscore and dash
// become a single underscore, leading and trailing dots and underscores are
// trimmed, and the result is cut to maxNameLen bytes. An empty result is
// "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	under := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			under = false
		case !under:
			b.WriteByte('_')
			under = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ValidateName rejects a name that SanitizeFilename would change, so it
// can be joined to a directory without escaping it.
func ValidateName(name string) error {
	if name == "" || name != SanitizeFilename(name) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

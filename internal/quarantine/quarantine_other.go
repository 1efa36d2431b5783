//go:build !darwin

package quarantine

import "github.com/charmbracelet/log"

// HasQuarantine always reports false off macOS: the xattr is a
// macOS/Gatekeeper concept only (Section 4.4).
func HasQuarantine(path string) (bool, error) {
	return false, nil
}

// SetQuarantine is a no-op off macOS.
func SetQuarantine(path, agent string) error {
	log.Debug("quarantine: not on macOS, skipping", "path", path)
	return nil
}

// EnsureQuarantine is a no-op off macOS.
func EnsureQuarantine(path, agent string) error {
	log.Debug("quarantine: not on macOS, skipping", "path", path)
	return nil
}

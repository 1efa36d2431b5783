//go:build darwin

package quarantine

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/sps-pm/sps-core/internal/sperrors"
)

const attrName = "com.apple.quarantine"

// HasQuarantine reports whether path already carries com.apple.quarantine.
func HasQuarantine(path string) (bool, error) {
	cmd := exec.Command("xattr", "-p", attrName, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			_ = exitErr
			// xattr exits non-zero when the attribute is absent.
			return false, nil
		}
		return false, fmt.Errorf("checking quarantine on %s: %w", path, err)
	}
	return true, nil
}

// SetQuarantine unconditionally stamps the quarantine attribute.
func SetQuarantine(path, agent string) error {
	if _, err := os.Lstat(path); err != nil {
		return fmt.Errorf("%w: %s", sperrors.ErrNotFound, path)
	}

	value := buildValue(agent)
	log.Debug("setting quarantine attribute", "path", path, "value", value)

	cmd := exec.Command("xattr", "-w", attrName, value, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("setting quarantine on %s: %s: %w", path, stderr.String(), err)
	}
	return nil
}

// EnsureQuarantine sets the attribute only if it is not already present,
// so a user who has already approved the app via Gatekeeper is not
// re-flagged (Section 4.4).
func EnsureQuarantine(path, agent string) error {
	has, err := HasQuarantine(path)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	return SetQuarantine(path, agent)
}

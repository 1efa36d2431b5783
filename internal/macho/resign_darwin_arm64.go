//go:build darwin && arm64

package macho

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/sps-pm/sps-core/internal/sperrors"
)

// resignImpl re-signs a patched binary on Apple Silicon, where an
// unsigned or stale-signed Mach-O will refuse to load. Failure is
// fatal: the binary would otherwise be unusable.
func resignImpl(path string) error {
	cmd := exec.Command("codesign", "-s", "-", "--force", "--preserve-metadata=identifier,entitlements", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %s", sperrors.ErrCodesign, path, stderr.String())
	}
	return nil
}

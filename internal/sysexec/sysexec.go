/*
Package sysexec wraps external processes the installer shells out to:
mv and cp -R, plus a generic Run. Reimplementing these loses platform-specific
corner cases (APFS clone semantics on cp -R, translocation bits on
xattr), so the abstraction is deliberately thin: run this argv, observe
the exit code and stderr.
*/
package sysexec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Run executes name with args, returning a wrapped error including
// captured stderr on non-zero exit. Grounded on the Command/stderr
// capture idiom used throughout sign.go.
func Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %s: %w", name, args, stderr.String(), err)
	}
	return nil
}

// Move renames src to dst (mv), the fast path for same-filesystem
// artifact placement.
func Move(ctx context.Context, src, dst string) error {
	return Run(ctx, "mv", src, dst)
}

// CopyRecursive invokes cp -R as the cross-filesystem fallback when a
// rename fails.
func CopyRecursive(ctx context.Context, src, dst string) error {
	return Run(ctx, "cp", "-R", src, dst)
}

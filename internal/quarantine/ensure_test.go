package quarantine

import (
	"os"
	"path/filepath"
	"testing"
)

// TestEnsureQuarantineOnExistingFile exercises the platform-agnostic
// contract: on an existing path, EnsureQuarantine succeeds, and a second
// call succeeds too. On darwin it stamps the attribute; off darwin it is
// a no-op.
func TestEnsureQuarantineOnExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.app")
	if err := os.WriteFile(path, []byte("stub"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := EnsureQuarantine(path, "sps"); err != nil {
		t.Fatalf("EnsureQuarantine: %v", err)
	}
	// Calling twice must remain error-free: EnsureQuarantine is
	// check-then-set, so a second call is a no-op either way.
	if err := EnsureQuarantine(path, "sps"); err != nil {
		t.Fatalf("second EnsureQuarantine call: %v", err)
	}
}

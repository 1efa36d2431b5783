package macho

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildThinMachO assembles a minimal 64-bit Mach-O buffer containing a
// single LC_LOAD_DYLIB command whose embedded path is oldPath, padded to
// slotLen bytes (including the terminating NUL).
func buildThinMachO(t *testing.T, oldPath string, slotLen int) []byte {
	t.Helper()
	if slotLen < len(oldPath)+1 {
		t.Fatalf("slotLen %d too small for %q", slotLen, oldPath)
	}

	const dylibCmdPrefix = 24 // cmd, cmdsize, name.offset, timestamp, current_version, compat_version
	cmdSize := dylibCmdPrefix + slotLen

	header := make([]byte, header64Size)
	binary.LittleEndian.PutUint32(header[0:4], magic64)
	binary.LittleEndian.PutUint32(header[16:20], 1)                // ncmds
	binary.LittleEndian.PutUint32(header[20:24], uint32(cmdSize))  // sizeofcmds

	cmd := make([]byte, cmdSize)
	binary.LittleEndian.PutUint32(cmd[0:4], lcLoadDylib)
	binary.LittleEndian.PutUint32(cmd[4:8], uint32(cmdSize))
	binary.LittleEndian.PutUint32(cmd[8:12], dylibCmdPrefix) // name.offset
	copy(cmd[dylibCmdPrefix:], oldPath)

	buf := append(header, cmd...)
	return buf
}

func TestCollectAndApplyPatches(t *testing.T) {
	oldPath := "@@HOMEBREW_PREFIX@@/lib/libfoo.dylib"
	buf := buildThinMachO(t, oldPath, 48)

	replacements := map[string]string{"@@HOMEBREW_PREFIX@@": "/usr/local"}

	patches, skipped, err := collectPatches(buf, replacements, "test.dylib")
	if err != nil {
		t.Fatalf("collectPatches: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %d", len(skipped))
	}
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch, got %d", len(patches))
	}

	out := applyPatches(buf, patches)
	if len(out) != len(buf) {
		t.Fatalf("patched buffer length changed: %d != %d", len(out), len(buf))
	}

	wantPath := "/usr/local/lib/libfoo.dylib"
	gotRaw := out[patches[0].absoluteOffset : patches[0].absoluteOffset+patches[0].allocatedLen]
	nul := bytes.IndexByte(gotRaw, 0)
	got := string(gotRaw[:nul])
	if got != wantPath {
		t.Fatalf("patched path = %q, want %q", got, wantPath)
	}

	// Original buffer must be untouched: applyPatches clones, never mutates.
	origRaw := buf[patches[0].absoluteOffset : patches[0].absoluteOffset+patches[0].allocatedLen]
	origNul := bytes.IndexByte(origRaw, 0)
	if string(origRaw[:origNul]) != oldPath {
		t.Fatal("applyPatches mutated the input buffer in place")
	}
}

func TestCollectPatchesSkipsWhenReplacementTooLong(t *testing.T) {
	oldPath := "@@HOMEBREW_PREFIX@@/lib/libfoo.dylib"
	buf := buildThinMachO(t, oldPath, len(oldPath)+1) // zero slack

	replacements := map[string]string{"@@HOMEBREW_PREFIX@@": "/opt/homebrew/much/longer/prefix/path"}

	patches, skipped, err := collectPatches(buf, replacements, "test.dylib")
	if err != nil {
		t.Fatalf("collectPatches: %v", err)
	}
	if len(patches) != 0 {
		t.Fatalf("expected no patches applied, got %d", len(patches))
	}
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped path, got %d", len(skipped))
	}
	if skipped[0].OldPath != oldPath {
		t.Fatalf("skipped.OldPath = %q, want %q", skipped[0].OldPath, oldPath)
	}
}

func TestCollectPatchesNoOpOnNonMachO(t *testing.T) {
	buf := []byte("not a mach-o file at all")
	patches, skipped, err := collectPatches(buf, map[string]string{"a": "b"}, "plain.txt")
	if err != nil {
		t.Fatalf("collectPatches: %v", err)
	}
	if len(patches) != 0 || len(skipped) != 0 {
		t.Fatal("expected no-op on an unrecognized file format")
	}
}

func TestPatchEndToEndWritesFileInPlace(t *testing.T) {
	oldPath := "@@HOMEBREW_PREFIX@@/lib/libfoo.dylib"
	buf := buildThinMachO(t, oldPath, 48)

	path := filepath.Join(t.TempDir(), "libfoo.dylib")
	if err := os.WriteFile(path, buf, 0o755); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	patched, skipped, err := Patch(path, map[string]string{"@@HOMEBREW_PREFIX@@": "/usr/local"})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if !patched {
		t.Fatal("expected patched=true")
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %v", skipped)
	}

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading patched file: %v", err)
	}
	if !bytes.Contains(out, []byte("/usr/local/lib/libfoo.dylib")) {
		t.Fatal("patched file does not contain the rewritten path")
	}
	if bytes.Contains(out, []byte("@@HOMEBREW_PREFIX@@")) {
		t.Fatal("patched file still contains the placeholder")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Fatal("atomic rewrite lost the executable bit")
	}
}

func TestPatchNoOpWhenNoReplacementMatches(t *testing.T) {
	oldPath := "/usr/local/lib/libbar.dylib"
	buf := buildThinMachO(t, oldPath, 48)

	path := filepath.Join(t.TempDir(), "libbar.dylib")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	patched, skipped, err := Patch(path, map[string]string{"@@HOMEBREW_PREFIX@@": "/usr/local"})
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if patched {
		t.Fatal("expected patched=false when no placeholder is present")
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skips, got %v", skipped)
	}
}

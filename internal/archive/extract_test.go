package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTar(t *testing.T, entries map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar: %v", err)
	}

	path := filepath.Join(t.TempDir(), "archive.tar")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	return path
}

// TestExtractTraversalAbortsWithEmptyStage encodes scenario S1: a
// traversal entry is fatal and aborts the whole extraction, leaving the
// stage with no files — not a per-entry skip.
func TestExtractTraversalAbortsWithEmptyStage(t *testing.T) {
	archivePath := writeTar(t, map[string]string{
		"../escaped.txt": "should not land outside stage",
		"safe.txt":       "fine",
	})
	stage := filepath.Join(t.TempDir(), "stage")

	ext := NewExtractor()
	_, err := ext.Extract(archivePath, stage, 0, KindTar)
	if err == nil {
		t.Fatal("expected traversal entry to abort extraction")
	}
	if !errors.Is(err, ErrTraversal) {
		t.Fatalf("expected error to wrap ErrTraversal, got %v", err)
	}

	if _, statErr := os.Stat(filepath.Join(filepath.Dir(stage), "escaped.txt")); statErr == nil {
		t.Fatal("traversal entry must not land outside the stage directory")
	}
	entries, _ := os.ReadDir(stage)
	if len(entries) != 0 {
		t.Fatalf("expected empty stage after aborted extraction, found %d entries", len(entries))
	}
}

func TestExtractStripComponents(t *testing.T) {
	archivePath := writeTar(t, map[string]string{
		"foo-1.2/bin/foo":   "binary",
		"foo-1.2/README.md": "readme",
	})
	stage := filepath.Join(t.TempDir(), "stage")

	ext := NewExtractor()
	if _, err := ext.Extract(archivePath, stage, 1, KindTar); err != nil {
		t.Fatalf("extract: %v", err)
	}

	if _, err := os.Stat(filepath.Join(stage, "bin", "foo")); err != nil {
		t.Fatalf("expected bin/foo to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(stage, "foo-1.2")); err == nil {
		t.Fatal("wrapper directory should have been stripped")
	}
}

func TestExtractStripComponentsBeyondDepthYieldsEmptyStage(t *testing.T) {
	archivePath := writeTar(t, map[string]string{
		"a/b": "x",
	})
	stage := filepath.Join(t.TempDir(), "stage")

	ext := NewExtractor()
	if _, err := ext.Extract(archivePath, stage, 5, KindTar); err != nil {
		t.Fatalf("extract: %v", err)
	}
	entries, _ := os.ReadDir(stage)
	if len(entries) != 0 {
		t.Fatalf("expected empty stage, found %d entries", len(entries))
	}
}

func TestInferRootSingleSharedRoot(t *testing.T) {
	archivePath := writeTar(t, map[string]string{
		"foo-1.2/bin/foo":   "binary",
		"foo-1.2/README.md": "readme",
	})

	ext := NewExtractor()
	root, err := ext.InferRoot(archivePath, KindTar)
	if err != nil {
		t.Fatalf("infer root: %v", err)
	}
	if root != "foo-1.2" {
		t.Fatalf("expected root %q, got %q", "foo-1.2", root)
	}
}

func TestInferRootMultipleRoots(t *testing.T) {
	archivePath := writeTar(t, map[string]string{
		"foo/bin":  "x",
		"bar/lib":  "y",
	})

	ext := NewExtractor()
	root, err := ext.InferRoot(archivePath, KindTar)
	if err != nil {
		t.Fatalf("infer root: %v", err)
	}
	if root != "" {
		t.Fatalf("expected no shared root, got %q", root)
	}
}

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		"foo.zip":     KindZip,
		"foo.tar":     KindTar,
		"foo.tar.gz":  KindTarGz,
		"foo.tgz":     KindTarGz,
		"foo.tar.bz2": KindTarBz2,
		"foo.tar.xz":  KindTarXz,
		"foo.bin":     KindUnknown,
	}
	for name, want := range cases {
		if got := DetectKind(name); got != want {
			t.Errorf("DetectKind(%q) = %v, want %v", name, got, want)
		}
	}
}

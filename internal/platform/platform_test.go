package platform

import (
	"runtime"
	"strings"
	"testing"
)

// TestDetectTagFallback exercises the documented fallback path: on any
// machine without a working sw_vers (every non-macOS CI runner), DetectTag
// must still return a usable tag alongside a non-nil error rather than
// leaving the caller with an empty string.
func TestDetectTagFallback(t *testing.T) {
	if runtime.GOOS == "darwin" {
		t.Skip("fallback path is only reachable off darwin or with a broken sw_vers")
	}

	tag, err := DetectTag()
	if err == nil {
		t.Fatal("expected an error when sw_vers cannot be run")
	}
	if !strings.HasSuffix(tag, fallbackTag) {
		t.Fatalf("tag = %q, want suffix %q", tag, fallbackTag)
	}
}

func TestArchPrefix(t *testing.T) {
	prefix := archPrefix()
	if runtime.GOARCH == "amd64" {
		if prefix != "" {
			t.Fatalf("amd64 archPrefix = %q, want empty", prefix)
		}
		return
	}
	want := runtime.GOARCH + "_"
	if prefix != want {
		t.Fatalf("archPrefix = %q, want %q", prefix, want)
	}
}

func TestCodenamesCoverSupportedMajors(t *testing.T) {
	for major, want := range map[int]string{11: "big_sur", 12: "monterey", 13: "ventura", 14: "sonoma", 15: "sequoia"} {
		got, ok := codenames[major]
		if !ok {
			t.Fatalf("missing codename for major version %d", major)
		}
		if got != want {
			t.Fatalf("codenames[%d] = %q, want %q", major, got, want)
		}
	}
}

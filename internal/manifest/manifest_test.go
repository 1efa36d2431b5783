package manifest

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New("firefox", "128.0")
	m.Add(AppBundle("/Applications/Firefox.app"))
	m.Add(CaskroomLink("/opt/sps/Caskroom/firefox/128.0/Firefox.app", "/Applications/Firefox.app"))
	m.Add(BinaryLink("/opt/sps/bin/firefox", "/opt/sps/Cellar/firefox/128.0/bin/firefox"))

	path := filepath.Join(t.TempDir(), "nested", "manifest.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "firefox" || loaded.Version != "128.0" {
		t.Fatalf("loaded name/version = %q/%q, want firefox/128.0", loaded.Name, loaded.Version)
	}
	if len(loaded.Artifacts) != 3 {
		t.Fatalf("expected 3 artifacts, got %d", len(loaded.Artifacts))
	}
	if loaded.Artifacts[0].Kind != KindAppBundle {
		t.Fatalf("artifact[0].Kind = %v, want %v", loaded.Artifacts[0].Kind, KindAppBundle)
	}
}

func TestReversedOrder(t *testing.T) {
	m := New("vlc", "3.0")
	m.Add(AppBundle("/Applications/VLC.app"))
	m.Add(CaskroomLink("link", "target"))
	m.Add(BinaryLink("binlink", "bintarget"))

	rev := m.Reversed()
	if len(rev) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(rev))
	}
	if rev[0].Kind != KindBinaryLink || rev[2].Kind != KindAppBundle {
		t.Fatalf("Reversed did not reverse declaration order: %+v", rev)
	}

	// Reversed must not mutate the original order.
	all := m.All()
	if all[0].Kind != KindAppBundle {
		t.Fatal("Reversed mutated the underlying artifact slice")
	}
}

func TestAllReturnsIndependentCopy(t *testing.T) {
	m := New("x", "1")
	m.Add(AppBundle("/Applications/X.app"))

	snap := m.All()
	snap[0] = AppBundle("/tampered")

	if m.All()[0].Path != "/Applications/X.app" {
		t.Fatal("mutating the snapshot from All() must not affect the manifest")
	}
}

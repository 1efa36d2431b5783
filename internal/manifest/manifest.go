/*
Package manifest records the side effects of one package install as a
sealed set of tagged artifact records, and persists them as the
per-version manifest consumed by uninstall and upgrade.

The tagged-record design replaces any artifact class hierarchy: the
same variant set is both the install-time output and the uninstall-time
input, which is what makes exact reversal possible without re-deriving
what an install did from scratch.
*/
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Kind identifies which variant of InstalledArtifact a record holds.
type Kind string

const (
	KindAppBundle     Kind = "AppBundle"
	KindMovedResource Kind = "MovedResource"
	KindCaskroomLink  Kind = "CaskroomLink"
	KindBinaryLink    Kind = "BinaryLink"
	KindPkgInstaller  Kind = "PkgInstaller"
	KindLaunchd       Kind = "Launchd"
	KindZapTrash      Kind = "ZapTrash"
)

// InstalledArtifact is one recorded side effect of an install. Only the
// fields relevant to Kind are populated; the rest are zero. Field usage
// by kind:
//
//	AppBundle, MovedResource, PkgInstaller, Launchd, ZapTrash: Path
//	CaskroomLink, BinaryLink: LinkPath, TargetPath
type InstalledArtifact struct {
	Kind       Kind   `json:"kind"`
	Path       string `json:"path,omitempty"`
	LinkPath   string `json:"link_path,omitempty"`
	TargetPath string `json:"target_path,omitempty"`
}

// AppBundle records a directory placed under /Applications (or a
// configured equivalent).
func AppBundle(path string) InstalledArtifact {
	return InstalledArtifact{Kind: KindAppBundle, Path: path}
}

// MovedResource records any other bundle moved into a user library
// directory (fonts, services, screen savers, …).
func MovedResource(path string) InstalledArtifact {
	return InstalledArtifact{Kind: KindMovedResource, Path: path}
}

// CaskroomLink records a symlink from the package's own version
// directory back to the moved artifact, for reverse lookup.
func CaskroomLink(linkPath, targetPath string) InstalledArtifact {
	return InstalledArtifact{Kind: KindCaskroomLink, LinkPath: linkPath, TargetPath: targetPath}
}

// BinaryLink records a symlink under a public bin/lib/include/man
// directory to a formula-installed file in the cellar.
func BinaryLink(linkPath, targetPath string) InstalledArtifact {
	return InstalledArtifact{Kind: KindBinaryLink, LinkPath: linkPath, TargetPath: targetPath}
}

// PkgInstaller records a macOS .pkg installer run as a placement side
// effect, to be undone (where the cask declares an uninstall pkgutil
// forget step) on removal.
func PkgInstaller(path string) InstalledArtifact {
	return InstalledArtifact{Kind: KindPkgInstaller, Path: path}
}

// Launchd records a launch agent/daemon plist installed alongside an
// artifact, unloaded and removed on uninstall.
func Launchd(path string) InstalledArtifact {
	return InstalledArtifact{Kind: KindLaunchd, Path: path}
}

// ZapTrash records a path moved to Trash by a cask's zap stanza.
func ZapTrash(path string) InstalledArtifact {
	return InstalledArtifact{Kind: KindZapTrash, Path: path}
}

// Manifest is the ordered, thread-safe list of artifact records for one
// package version. Placement within one install is sequential in
// declaration order; the mutex makes Add, All, Reversed and Save safe
// to call from concurrent goroutines.
type Manifest struct {
	mu        sync.Mutex
	Name      string              `json:"name"`
	Version   string              `json:"version"`
	Artifacts []InstalledArtifact `json:"artifacts"`
}

// New creates an empty manifest for name/version.
func New(name, version string) *Manifest {
	return &Manifest{Name: name, Version: version}
}

// Add appends a record in a thread-safe manner.
func (m *Manifest) Add(a InstalledArtifact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Artifacts = append(m.Artifacts, a)
}

// All returns a snapshot copy of the recorded artifacts.
func (m *Manifest) All() []InstalledArtifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InstalledArtifact, len(m.Artifacts))
	copy(out, m.Artifacts)
	return out
}

// Reversed returns the recorded artifacts in reverse declaration order,
// the order an upgrade's soft-uninstall undoes them in.
func (m *Manifest) Reversed() []InstalledArtifact {
	all := m.All()
	out := make([]InstalledArtifact, len(all))
	for i, a := range all {
		out[len(all)-1-i] = a
	}
	return out
}

// Save writes the manifest as indented JSON to path, creating parent
// directories as needed.
func (m *Manifest) Save(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a manifest previously written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

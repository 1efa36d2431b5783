/*
Package cask places a cask's declared artifacts from a staging
directory into their canonical macOS locations, creating the caskroom
back-links every uninstall needs to reverse the placement exactly.
*/
package cask

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/sps-pm/sps-core/internal/config"
	"github.com/sps-pm/sps-core/internal/manifest"
	"github.com/sps-pm/sps-core/internal/quarantine"
	"github.com/sps-pm/sps-core/internal/sysexec"
)

// DataMigrator is invoked once per placed artifact during an upgrade,
// so per-app data directories can be copied across from the old
// version's tree.
type DataMigrator func(artifactName, oldInstallPath, newDestPath string) error

// Placer places artifacts for one cask install.
type Placer struct {
	Config *config.CoreConfig
	// Migrate, when non-nil, is called after each artifact is placed
	// during an upgrade.
	Migrate DataMigrator
	// OldInstallPath is set only when placing as part of an upgrade.
	OldInstallPath string
}

// Place executes the uniform per-stanza placement algorithm for every
// stanza of cask, in order, against the given stage and the cask's own
// caskroom version directory. App-bearing stanzas are placed before
// auxiliary ones regardless of their declared order, so the quarantine
// stamp placeOne applies to app-bearing artifacts runs against the main
// bundle's final location first.
func (p *Placer) Place(ctx context.Context, cask config.CaskDefinition, stage, versionDir string) ([]manifest.InstalledArtifact, error) {
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating caskroom version directory %s: %w", versionDir, err)
	}

	ordered := orderStanzas(cask.Artifacts)

	seenKinds := make(map[string]bool)
	var records []manifest.InstalledArtifact

	for _, stanza := range ordered {
		if seenKinds[stanza.Kind] {
			// First stanza of a kind wins; later ones of the same kind
			// are logged at Warn and ignored.
			log.Warn("cask: ignoring additional stanza of already-placed kind", "kind", stanza.Kind, "cask", cask.Token)
			continue
		}
		seenKinds[stanza.Kind] = true

		destDir := p.Config.StanzaDestination(stanza.Kind)
		if destDir == "" {
			log.Warn("cask: no destination configured for stanza kind, skipping", "kind", stanza.Kind, "cask", cask.Token)
			continue
		}
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return records, fmt.Errorf("creating destination directory %s: %w", destDir, err)
		}

		for _, name := range stanza.Names {
			placed, err := p.placeOne(ctx, stanza, name, stage, destDir, versionDir)
			if err != nil {
				return records, err
			}
			records = append(records, placed...)
		}
	}

	return records, nil
}

func (p *Placer) placeOne(ctx context.Context, stanza config.Stanza, name, stage, destDir, versionDir string) ([]manifest.InstalledArtifact, error) {
	src := filepath.Join(stage, name)
	if _, err := os.Lstat(src); err != nil {
		log.Debug("cask: named artifact missing from stage, skipping", "name", name, "stage", stage)
		return nil, nil
	}

	dest := filepath.Join(destDir, name)
	if _, err := os.Lstat(dest); err == nil {
		if err := os.RemoveAll(dest); err != nil {
			return nil, fmt.Errorf("removing existing %s: %w", dest, err)
		}
	}

	if err := sysexec.Move(ctx, src, dest); err != nil {
		log.Debug("cask: rename failed, falling back to copy", "src", src, "dest", dest, "error", err)
		if err := sysexec.CopyRecursive(ctx, src, dest); err != nil {
			return nil, fmt.Errorf("placing %s: %w", name, err)
		}
		if _, statErr := os.Lstat(dest); statErr != nil {
			return nil, fmt.Errorf("placing %s: destination missing after copy fallback: %w", name, statErr)
		}
	}

	var records []manifest.InstalledArtifact
	if stanza.IsAppBearing() {
		records = append(records, manifest.AppBundle(dest))
	} else {
		records = append(records, manifest.MovedResource(dest))
	}

	linkPath := filepath.Join(versionDir, name)
	if _, err := os.Lstat(linkPath); err == nil {
		if err := os.Remove(linkPath); err != nil {
			return nil, fmt.Errorf("removing stale caskroom link %s: %w", linkPath, err)
		}
	}
	if err := os.Symlink(dest, linkPath); err != nil {
		return nil, fmt.Errorf("linking %s to %s: %w", linkPath, dest, err)
	}
	records = append(records, manifest.CaskroomLink(linkPath, dest))

	if p.Migrate != nil && p.OldInstallPath != "" {
		if err := p.Migrate(name, p.OldInstallPath, dest); err != nil {
			log.Warn("cask: data migration failed", "name", name, "error", err)
		}
	}

	if stanza.IsAppBearing() {
		if err := quarantine.EnsureQuarantine(dest, p.Config.QuarantineAgent); err != nil {
			log.Warn("cask: quarantine stamp failed", "path", dest, "error", err)
		}
	}

	return records, nil
}

// orderStanzas returns stanzas with every app-bearing one (app, suite)
// moved ahead of auxiliary ones, preserving relative order within each
// group.
func orderStanzas(stanzas []config.Stanza) []config.Stanza {
	var appBearing, auxiliary []config.Stanza
	for _, s := range stanzas {
		if s.IsAppBearing() {
			appBearing = append(appBearing, s)
		} else {
			auxiliary = append(auxiliary, s)
		}
	}
	return append(appBearing, auxiliary...)
}

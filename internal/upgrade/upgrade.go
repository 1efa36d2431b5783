/*
Package upgrade composes soft-uninstall of an old cask version and
install of a new one under rollback-aware failure semantics: either the
new version ends up installed and the old version directory removed, or
the old version directory remains in place. The old version's recorded
artifacts are undone before the new version is placed and are not
restored when placement fails.
*/
package upgrade

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/sps-pm/sps-core/internal/cask"
	"github.com/sps-pm/sps-core/internal/config"
	"github.com/sps-pm/sps-core/internal/manifest"
	"github.com/sps-pm/sps-core/internal/sperrors"
)

// Action tags an install with the upgrade context the artifact placer
// needs to decide whether to migrate per-app data directories.
type Action struct {
	FromVersion    string
	OldInstallPath string
}

// OldInstall describes the currently-installed version being replaced.
type OldInstall struct {
	Version    string
	VersionDir string // the old caskroom version directory
	Manifest   *manifest.Manifest
}

// Orchestrator drives a cask upgrade.
type Orchestrator struct {
	Config *config.CoreConfig
	Placer *cask.Placer
}

// NewOrchestrator builds an Orchestrator sharing cfg with its cask
// placer.
func NewOrchestrator(cfg *config.CoreConfig) *Orchestrator {
	return &Orchestrator{Config: cfg, Placer: &cask.Placer{Config: cfg}}
}

// Upgrade runs the three-step protocol: soft-uninstall the old version,
// install the new one tagged with an Upgrade action, then delete the
// old tree on success or leave it in place (re-linkable) on failure.
func (o *Orchestrator) Upgrade(ctx context.Context, old OldInstall, newCask config.CaskDefinition, stage string) (*manifest.Manifest, error) {
	if err := o.softUninstall(old); err != nil {
		return nil, fmt.Errorf("%w: soft-uninstalling %s %s: %v", sperrors.ErrInstall, newCask.Token, old.Version, err)
	}

	newVersionDir := filepath.Join(o.Config.Caskroom, newCask.Token, newCask.Version)

	o.Placer.OldInstallPath = old.VersionDir
	// o.Placer.Migrate is left as the caller set it before calling Upgrade.

	records, placeErr := o.Placer.Place(ctx, newCask, stage, newVersionDir)
	if placeErr != nil {
		// New install failed: the old tree is still present (we only
		// soft-uninstalled its artifacts, not the version directory
		// itself) and can be relinked; remove the partial new tree.
		log.Error("upgrade: new install failed, old version remains for rollback", "cask", newCask.Token, "error", placeErr)
		_ = os.RemoveAll(newVersionDir)
		return nil, fmt.Errorf("%w: installing new version of %s: %v", sperrors.ErrInstall, newCask.Token, placeErr)
	}

	m := manifest.New(newCask.Token, newCask.Version)
	for _, r := range records {
		m.Add(r)
	}
	if err := m.Save(filepath.Join(newVersionDir, "manifest.json")); err != nil {
		return nil, fmt.Errorf("%w: saving manifest for %s: %v", sperrors.ErrInstall, newCask.Token, err)
	}

	if old.VersionDir != "" {
		if err := os.RemoveAll(old.VersionDir); err != nil {
			log.Warn("upgrade: failed to remove old version directory", "path", old.VersionDir, "error", err)
		}
	}

	return m, nil
}

// softUninstall undoes every recorded artifact of the old version in
// reverse declaration order, leaving the old caskroom/cellar version
// directory itself in place for rollback and data migration (Section
// 4.7 step 1).
func (o *Orchestrator) softUninstall(old OldInstall) error {
	if old.Manifest == nil {
		return nil
	}
	for _, a := range old.Manifest.Reversed() {
		if err := undoArtifact(a); err != nil {
			log.Warn("upgrade: failed to undo artifact during soft-uninstall", "kind", a.Kind, "error", err)
		}
	}
	return nil
}

func undoArtifact(a manifest.InstalledArtifact) error {
	switch a.Kind {
	case manifest.KindCaskroomLink, manifest.KindBinaryLink:
		return removeIfExists(a.LinkPath)
	case manifest.KindAppBundle, manifest.KindMovedResource:
		return removeIfExists(a.Path)
	case manifest.KindLaunchd, manifest.KindPkgInstaller, manifest.KindZapTrash:
		return removeIfExists(a.Path)
	default:
		return nil
	}
}

func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Lstat(path); err != nil {
		return nil
	}
	return os.RemoveAll(path)
}

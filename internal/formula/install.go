/*
Package formula pours a bottle into the cellar, relocates every
Mach-O file it contains, links its public files into the shared
prefix, and writes the install receipt.
*/
package formula

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/sps-pm/sps-core/internal/archive"
	"github.com/sps-pm/sps-core/internal/config"
	"github.com/sps-pm/sps-core/internal/macho"
	"github.com/sps-pm/sps-core/internal/manifest"
	"github.com/sps-pm/sps-core/internal/parallel"
	"github.com/sps-pm/sps-core/internal/platform"
)

// Installer pours one bottle into a cellar.
type Installer struct {
	Config   *config.CoreConfig
	Extractor *archive.Extractor
	// Workers bounds how many files are patched concurrently; order
	// across files of one formula is unspecified, so parallelizing is
	// always safe.
	Workers int
}

// NewInstaller builds an Installer against cfg with a default
// concurrency of 4 workers.
func NewInstaller(cfg *config.CoreConfig) *Installer {
	return &Installer{Config: cfg, Extractor: archive.NewExtractor(), Workers: 4}
}

// Install extracts bottlePath into the formula's cellar directory,
// patches every regular file's Mach-O load commands, links public
// files into the prefix, and writes the install receipt.
func (ins *Installer) Install(ctx context.Context, f config.FormulaDefinition, bottlePath string) (*manifest.Manifest, error) {
	versionDir := filepath.Join(ins.Config.Cellar, f.Name, f.Version)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cellar directory %s: %w", versionDir, err)
	}

	kind := archive.DetectKind(bottlePath)
	strip := 0
	if root, err := ins.Extractor.InferRoot(bottlePath, kind); err == nil && root != "" {
		strip = 1
		if root == f.Name {
			// A <name>/<version>/ bottle wrapper is two components deep.
			strip = 2
		}
	}

	if _, err := ins.Extractor.Extract(bottlePath, versionDir, strip, kind); err != nil {
		return nil, fmt.Errorf("extracting bottle %s: %w", bottlePath, err)
	}

	replacements := map[string]string{
		f.PrefixPlaceholder: ins.Config.Prefix,
		f.CellarPlaceholder: ins.Config.Cellar,
	}

	if err := ins.patchTree(ctx, versionDir, replacements); err != nil {
		return nil, err
	}

	m := manifest.New(f.Name, f.Version)
	if err := ins.linkPublicFiles(f, versionDir, m); err != nil {
		return nil, err
	}

	tag, _ := platform.DetectTag()
	receipt := Receipt{
		Name:    f.Name,
		Version: f.Version,
		Source:  ReceiptSource{Type: "api", URL: f.SourceURL},
		BuiltOn: ReceiptBuiltOn{OS: "darwin", Arch: currentArch(), PlatformTag: tag},
	}
	for _, a := range m.All() {
		receipt.ResourcesInstalled = append(receipt.ResourcesInstalled, a.LinkPath)
	}
	if err := receipt.Write(filepath.Join(versionDir, "INSTALL_RECEIPT.json")); err != nil {
		return nil, fmt.Errorf("writing install receipt: %w", err)
	}

	return m, nil
}

// patchTree walks versionDir and runs macho.Patch on every regular
// file, parallelized across files.
func (ins *Installer) patchTree(ctx context.Context, versionDir string, replacements map[string]string) error {
	var files []string
	err := filepath.Walk(versionDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", versionDir, err)
	}

	counts, err := parallel.Map(ctx, files, ins.Workers, func(_ context.Context, path string) (int, error) {
		_, skipped, err := macho.Patch(path, replacements)
		if err != nil {
			return 0, fmt.Errorf("patching %s: %w", path, err)
		}
		return len(skipped), nil
	})
	if err != nil {
		return err
	}

	skippedCount := 0
	for _, c := range counts {
		skippedCount += c
	}
	if skippedCount > 0 {
		log.Warn("formula: some Mach-O replacements were skipped as too long", "count", skippedCount, "dir", versionDir)
	}
	return nil
}

// linkPublicFiles symlinks the formula's declared bin/lib/include/man
// entries from the cellar into the shared prefix directories (Section
// 4.6 step 3).
func (ins *Installer) linkPublicFiles(f config.FormulaDefinition, versionDir string, m *manifest.Manifest) error {
	groups := []struct {
		relPaths []string
		destDir  string
	}{
		{f.LinkBin, ins.Config.BinDir},
		{f.LinkLib, ins.Config.LibDir},
		{f.LinkInclude, ins.Config.IncludeDir},
		{f.LinkMan, ins.Config.ManDir},
	}

	for _, g := range groups {
		if len(g.relPaths) == 0 {
			continue
		}
		if err := os.MkdirAll(g.destDir, 0o755); err != nil {
			return fmt.Errorf("creating link directory %s: %w", g.destDir, err)
		}
		for _, rel := range g.relPaths {
			target := filepath.Join(versionDir, rel)
			link := filepath.Join(g.destDir, filepath.Base(rel))
			if _, err := os.Lstat(link); err == nil {
				if err := os.Remove(link); err != nil {
					return fmt.Errorf("removing stale link %s: %w", link, err)
				}
			}
			if err := os.Symlink(target, link); err != nil {
				return fmt.Errorf("linking %s: %w", link, err)
			}
			m.Add(manifest.BinaryLink(link, target))
		}
	}
	return nil
}

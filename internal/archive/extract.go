package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"

	"github.com/charmbracelet/log"

	"github.com/sps-pm/sps-core/internal/sperrors"
)

var (
	ErrTraversal = sperrors.ErrTraversal
	ErrGeneric   = sperrors.ErrGeneric
)

// Extractor unpacks a fetched archive into a stage directory.
type Extractor struct {
	// QuarantineAgent is the agent string passed to Quarantine for every
	// top-level *.app discovered by the post-extract hook (Section 4.1
	// "Post-hook").
	QuarantineAgent string
	// Quarantine is invoked once per top-level *.app after a successful
	// extraction. Left nil by callers that don't need the hook (e.g.
	// formula bottle installs, which contain no *.app bundles).
	Quarantine func(path, agent string) error
}

// NewExtractor builds an Extractor with no quarantine hook configured.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// rawEntry is the format-independent view of one archive member.
type rawEntry struct {
	name       string // in-archive path, as recorded
	mode       fs.FileMode
	isDir      bool
	isSymlink  bool
	linkTarget string
	reader     io.Reader
}

// Extract unpacks archive into stage, dropping stripComponents leading
// path components from every entry. Returns the list of entries skipped
// because they already existed at the destination (first-writer-wins).
func (e *Extractor) Extract(archivePath, stage string, stripComponents int, kind Kind) (skipped []string, err error) {
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return nil, fmt.Errorf("creating stage directory %s: %w", stage, err)
	}

	walkErr := e.walk(archivePath, kind, func(ent rawEntry) error {
		rel, ok, err := stripAndValidate(ent.name, stripComponents)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", ErrTraversal, ent.name, err)
		}
		if !ok {
			return nil // nothing left after stripping; skip silently
		}

		dest, err := securejoin.SecureJoin(stage, rel)
		if err != nil {
			return fmt.Errorf("%w: resolving %q against stage: %v", ErrTraversal, ent.name, err)
		}
		if !strings.HasPrefix(dest, filepath.Clean(stage)+string(filepath.Separator)) && dest != filepath.Clean(stage) {
			return fmt.Errorf("%w: %q escapes stage", ErrTraversal, ent.name)
		}

		switch {
		case ent.isDir:
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", dest, err)
			}
			return nil
		case ent.isSymlink:
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", dest, err)
			}
			_ = os.Remove(dest)
			if err := os.Symlink(ent.linkTarget, dest); err != nil {
				return fmt.Errorf("creating symlink %s: %w", dest, err)
			}
			return nil
		default:
			if _, statErr := os.Lstat(dest); statErr == nil {
				log.Debug("extract: entry already exists, skipping", "path", dest)
				skipped = append(skipped, ent.name)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", dest, err)
			}
			out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, ent.mode.Perm())
			if err != nil {
				return fmt.Errorf("creating %s: %w", dest, err)
			}
			_, copyErr := io.Copy(out, ent.reader)
			closeErr := out.Close()
			if copyErr != nil {
				return fmt.Errorf("writing %s: %w", dest, copyErr)
			}
			if closeErr != nil {
				return fmt.Errorf("closing %s: %w", dest, closeErr)
			}
			return os.Chmod(dest, ent.mode.Perm())
		}
	})

	if walkErr != nil {
		// Any traversal or I/O failure is fatal; leave no partial stage
		// behind (scenario S1: stage must contain no files on failure).
		_ = os.RemoveAll(stage)
		_ = os.MkdirAll(stage, 0o755)
		return nil, walkErr
	}

	e.runPostExtractHook(stage)

	return skipped, nil
}

// runPostExtractHook walks stage one level deep and stamps the
// quarantine attribute on every *.app directory found. Failures are
// logged as warnings and never fail the extraction (Section 4.1).
func (e *Extractor) runPostExtractHook(stage string) {
	if e.Quarantine == nil {
		return
	}
	entries, err := os.ReadDir(stage)
	if err != nil {
		log.Warn("post-extract hook: cannot list stage", "stage", stage, "error", err)
		return
	}
	for _, ent := range entries {
		if !ent.IsDir() || !strings.HasSuffix(ent.Name(), ".app") {
			continue
		}
		appPath := filepath.Join(stage, ent.Name())
		if err := e.Quarantine(appPath, e.QuarantineAgent); err != nil {
			log.Warn("post-extract hook: failed to set quarantine", "path", appPath, "error", err)
		}
	}
}

// stripAndValidate drops n leading path components from name and
// validates every remaining component is a "normal" one: no "..", no
// absolute roots, no drive letters. Returns (relPath, false, nil) if
// nothing remains after stripping (a benign skip); returns a non-nil
// error if any remaining component is a traversal attempt ("..",
// a drive letter, an absolute root that is not stripped) — that is
// always fatal, never a skip.
func stripAndValidate(name string, n int) (string, bool, error) {
	clean := filepath.ToSlash(name)
	wasAbs := strings.HasPrefix(clean, "/")
	clean = strings.TrimPrefix(clean, "/")
	parts := strings.Split(clean, "/")

	var all []string
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		all = append(all, p)
	}
	if wasAbs && (n == 0 || len(all) == 0) {
		return "", false, fmt.Errorf("absolute root path %q", name)
	}
	if n >= len(all) {
		return "", false, nil
	}
	kept := all[n:]
	if len(kept) == 0 {
		return "", false, nil
	}

	for _, p := range kept {
		if p == ".." {
			return "", false, fmt.Errorf("path traversal component %q in %q", p, name)
		}
		if strings.Contains(p, ":") { // drive letter, e.g. "C:"
			return "", false, fmt.Errorf("drive-letter component %q in %q", p, name)
		}
	}

	return filepath.Join(kept...), true, nil
}

func (e *Extractor) walk(archivePath string, kind Kind, fn func(rawEntry) error) error {
	switch kind {
	case KindZip:
		return e.walkZip(archivePath, fn)
	case KindTar, KindTarGz, KindTarBz2, KindTarXz:
		return e.walkTar(archivePath, kind, fn)
	default:
		return fmt.Errorf("%w: unsupported archive kind for %s", ErrGeneric, archivePath)
	}
}

func (e *Extractor) walkZip(archivePath string, fn func(rawEntry) error) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip %s: %w", archivePath, err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		mode := f.Mode()
		ent := rawEntry{name: f.Name, mode: mode}

		if mode&os.ModeSymlink != 0 {
			rc, err := f.Open()
			if err != nil {
				return fmt.Errorf("reading symlink target %s: %w", f.Name, err)
			}
			target, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return fmt.Errorf("reading symlink target %s: %w", f.Name, err)
			}
			ent.isSymlink = true
			ent.linkTarget = string(target)
			if err := fn(ent); err != nil {
				return err
			}
			continue
		}

		if f.FileInfo().IsDir() {
			ent.isDir = true
			if err := fn(ent); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
		}
		ent.reader = rc
		err = fn(ent)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) walkTar(archivePath string, kind Kind, fn func(rawEntry) error) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", archivePath, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch kind {
	case KindTarGz:
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening gzip stream %s: %w", archivePath, err)
		}
		defer gz.Close()
		r = gz
	case KindTarBz2:
		r = bzip2.NewReader(f)
	case KindTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("opening xz stream %s: %w", archivePath, err)
		}
		r = xr
	case KindTar:
		// plain tar, r already set to f
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry in %s: %w", archivePath, err)
		}

		ent := rawEntry{name: hdr.Name, mode: fs.FileMode(hdr.Mode)}
		switch hdr.Typeflag {
		case tar.TypeDir:
			ent.isDir = true
		case tar.TypeSymlink:
			ent.isSymlink = true
			ent.linkTarget = hdr.Linkname
		case tar.TypeReg:
			ent.reader = tr
		default:
			continue // skip device nodes, fifos, etc.
		}

		if err := fn(ent); err != nil {
			return err
		}
	}
}

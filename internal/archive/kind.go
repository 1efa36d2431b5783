/*
Package archive extracts fetched formula bottles and cask archives into
a stage directory, and infers a shared top-level directory so callers
can decide whether to strip it.
*/
package archive

import "strings"

// Kind identifies the compression/container format of a source archive.
// Detection is by filename suffix; the extractor is the sole arbiter,
// per the external interface contract — no magic sniffing.
type Kind int

const (
	KindUnknown Kind = iota
	KindZip
	KindTar
	KindTarGz
	KindTarBz2
	KindTarXz
)

// DetectKind derives a Kind from an archive's filename suffix.
func DetectKind(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return KindTarBz2
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return KindTarXz
	case strings.HasSuffix(lower, ".tar"):
		return KindTar
	default:
		return KindUnknown
	}
}

func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTar:
		return "tar"
	case KindTarGz:
		return "tar.gz"
	case KindTarBz2:
		return "tar.bz2"
	case KindTarXz:
		return "tar.xz"
	default:
		return "unknown"
	}
}

// Descriptor is a handle on a source archive: its path, its detected
// compression kind, and an optional inferred root directory name.
type Descriptor struct {
	Path string
	Kind Kind
	Root string // empty if no single shared root was inferred
}

// NewDescriptor builds a Descriptor from a path, detecting Kind from
// the filename suffix.
func NewDescriptor(path string) Descriptor {
	return Descriptor{Path: path, Kind: DetectKind(path)}
}

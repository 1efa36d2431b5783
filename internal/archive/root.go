package archive

import (
	"fmt"
	"strings"
)

// InferRoot peeks archivePath and returns the single top-level normal
// path component shared by every non-empty entry, or "" if no such
// single root exists (multiple roots, zero entries, or any entry whose
// top component is not a normal directory name).
func (e *Extractor) InferRoot(archivePath string, kind Kind) (string, error) {
	var root string
	seenAny := false
	multipleRoots := false

	err := e.walk(archivePath, kind, func(ent rawEntry) error {
		clean := strings.TrimPrefix(ent.name, "/")
		clean = strings.TrimSuffix(clean, "/")
		if clean == "" {
			return nil
		}
		top := clean
		if idx := strings.Index(clean, "/"); idx >= 0 {
			top = clean[:idx]
		}
		if top == "" || top == "." || top == ".." || strings.Contains(top, ":") {
			multipleRoots = true
			return nil
		}

		if !seenAny {
			root = top
			seenAny = true
			return nil
		}
		if top != root {
			multipleRoots = true
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("inferring root of %s: %w", archivePath, err)
	}

	if !seenAny || multipleRoots {
		return "", nil
	}
	return root, nil
}

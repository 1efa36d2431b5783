/*
Package sperrors defines the sentinel error kinds surfaced by the
installer pipeline: Traversal, Generic, Codesign, Install, NotFound.
Filesystem failures have no sentinel of their own; they are returned as
the wrapped os errors. Callers use errors.Is against these sentinels;
wrapped context is added with fmt.Errorf("...: %w", ...).
*/
package sperrors

import "errors"

var (
	// ErrTraversal marks an archive entry whose resolved path would
	// escape the stage directory.
	ErrTraversal = errors.New("archive entry escapes stage directory")
	// ErrGeneric covers unsupported archive kinds, malformed paths, and
	// other conditions with no more specific kind.
	ErrGeneric = errors.New("installer error")
	// ErrCodesign marks a non-zero exit from codesign re-signing a
	// patched Mach-O binary on Apple Silicon. Always fatal.
	ErrCodesign = errors.New("codesign failed")
	// ErrInstall marks a failure during upgrade soft-uninstall or
	// new-version install.
	ErrInstall = errors.New("install failed")
	// ErrNotFound marks a required path that does not exist.
	ErrNotFound = errors.New("path not found")
)

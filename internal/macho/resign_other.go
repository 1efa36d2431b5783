//go:build !(darwin && arm64)

package macho

// resignImpl is a no-op on Intel Macs and non-macOS targets: re-signing
// after an ad-hoc patch is only required on Apple Silicon (Section 4.3).
func resignImpl(path string) error {
	return nil
}

/*
Package macho rewrites embedded install-path placeholders inside
Mach-O executables, dylibs, and FAT (multi-architecture) containers
without breaking code signatures.

The design is deliberately two-phase: Phase A (collectPatches) parses
an immutable buffer and only ever reads; Phase B (applyPatches) takes
the resulting plan and edits a cloned buffer. Keeping parsing and
mutation in separate passes means Phase B can be unit-tested as a pure
buffer editor with no parser involved at all.
*/
package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/renameio"
)

const (
	magic32    = 0xfeedface
	magic64    = 0xfeedfacf
	fatMagic32 = 0xcafebabe
	fatMagic64 = 0xcafebabf

	header32Size = 28
	header64Size = 32

	lcLoadDylib = 0x0000000c
	lcIDDylib   = 0x0000000d
	lcRpath     = 0x8000001c // LC_RPATH | LC_REQ_DYLD
)

var arMagic = []byte("!<arch>\n")

// SkippedPath is emitted when a replacement would exceed its allocated
// slot in a load command; surfaced but non-fatal.
type SkippedPath struct {
	OldPath string
	NewPath string
}

// patchInfo is one string replacement location inside the whole file
// buffer, produced by Phase A and consumed by Phase B.
type patchInfo struct {
	absoluteOffset int
	allocatedLen   int
	replacement    string
}

// Patch rewrites every LC_LOAD_DYLIB/LC_ID_DYLIB/LC_RPATH path in path
// that contains a key of replacements, substituting the mapped value.
// Returns whether any byte was rewritten and any paths that could not
// be patched because the replacement did not fit its allocated slot.
func Patch(path string, replacements map[string]string) (patched bool, skipped []SkippedPath, err error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return false, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(buf) == 0 {
		return false, nil, nil
	}
	if len(buf) < 4 {
		return false, nil, nil
	}

	patches, skipped, err := collectPatches(buf, replacements, path)
	if err != nil {
		return false, skipped, err
	}
	if len(patches) == 0 {
		if len(skipped) == 0 {
			log.Debug("macho: no patches needed", "path", path)
		} else {
			log.Debug("macho: no patches applied, some skipped", "path", path, "skipped", len(skipped))
		}
		return false, skipped, nil
	}

	patchedBuf := applyPatches(buf, patches)

	if err := atomicWrite(path, patchedBuf); err != nil {
		return false, skipped, err
	}
	log.Debug("macho: wrote patched binary", "path", path)

	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		if err := resign(path); err != nil {
			return true, skipped, err
		}
		log.Debug("macho: re-signed patched binary", "path", path)
	}

	return true, skipped, nil
}

// collectPatches is Phase A: a pure, read-only pass over buf.
func collectPatches(buf []byte, replacements map[string]string, pathForLog string) ([]patchInfo, []SkippedPath, error) {
	if len(buf) < 4 {
		return nil, nil, nil
	}
	magicLE := binary.LittleEndian.Uint32(buf[0:4])
	magicBE := binary.BigEndian.Uint32(buf[0:4])

	switch {
	case magicLE == magic32:
		return findPatchesInSlice(buf, 0, binary.LittleEndian, false, header32Size, replacements, pathForLog)
	case magicLE == magic64:
		return findPatchesInSlice(buf, 0, binary.LittleEndian, true, header64Size, replacements, pathForLog)
	case magicBE == fatMagic32:
		return collectFatPatches(buf, false, replacements, pathForLog)
	case magicBE == fatMagic64:
		return collectFatPatches(buf, true, replacements, pathForLog)
	default:
		return nil, nil, nil // not an object file we understand; silent no-op
	}
}

func collectFatPatches(buf []byte, is64 bool, replacements map[string]string, pathForLog string) ([]patchInfo, []SkippedPath, error) {
	if len(buf) < 8 {
		return nil, nil, nil
	}
	nArch := int(binary.BigEndian.Uint32(buf[4:8]))

	var patches []patchInfo
	var skipped []SkippedPath

	archEntrySize := 20
	if is64 {
		archEntrySize = 32
	}
	cursor := 8

	for i := 0; i < nArch; i++ {
		if cursor+archEntrySize > len(buf) {
			break
		}
		entry := buf[cursor : cursor+archEntrySize]
		var off, size uint64
		if is64 {
			off = binary.BigEndian.Uint64(entry[8:16])
			size = binary.BigEndian.Uint64(entry[16:24])
		} else {
			off = uint64(binary.BigEndian.Uint32(entry[8:12]))
			size = uint64(binary.BigEndian.Uint32(entry[12:16]))
		}
		cursor += archEntrySize

		if off+size > uint64(len(buf)) {
			continue
		}
		slice := buf[off : off+size]

		if bytes.HasPrefix(slice, arMagic) {
			log.Debug("macho: skipping static archive slice in FAT container", "index", i, "path", pathForLog)
			continue
		}
		if len(slice) < 4 {
			continue
		}

		sliceMagicLE := binary.LittleEndian.Uint32(slice[0:4])
		var p []patchInfo
		var s []SkippedPath
		var err error
		switch sliceMagicLE {
		case magic64:
			p, s, err = findPatchesInSlice(buf, int(off), binary.LittleEndian, true, header64Size, replacements, pathForLog)
		case magic32:
			p, s, err = findPatchesInSlice(buf, int(off), binary.LittleEndian, false, header32Size, replacements, pathForLog)
		default:
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		patches = append(patches, p...)
		skipped = append(skipped, s...)
	}

	return patches, skipped, nil
}

// findPatchesInSlice walks the load commands of one Mach-O slice
// starting at buf[sliceBase:], whose header occupies headerSize bytes.
func findPatchesInSlice(buf []byte, sliceBase int, order binary.ByteOrder, is64 bool, headerSize int, replacements map[string]string, pathForLog string) ([]patchInfo, []SkippedPath, error) {
	if sliceBase+headerSize > len(buf) {
		return nil, nil, nil
	}
	ncmds := int(order.Uint32(buf[sliceBase+16 : sliceBase+20]))

	var patches []patchInfo
	var skipped []SkippedPath

	curOff := headerSize
	for i := 0; i < ncmds; i++ {
		cmdStart := sliceBase + curOff
		if cmdStart+8 > len(buf) {
			log.Warn("macho: truncated load command, stopping", "path", pathForLog)
			break
		}
		cmd := order.Uint32(buf[cmdStart : cmdStart+4])
		cmdSize := int(order.Uint32(buf[cmdStart+4 : cmdStart+8]))
		if cmdSize < 8 || cmdStart+cmdSize > len(buf) {
			log.Warn("macho: malformed load command size, skipping rest of file", "path", pathForLog, "cmd", cmd)
			break
		}

		if cmd == lcLoadDylib || cmd == lcIDDylib || cmd == lcRpath {
			if cmdStart+12 > len(buf) {
				curOff += cmdSize
				continue
			}
			strOffsetInCmd := int(order.Uint32(buf[cmdStart+8 : cmdStart+12]))
			if strOffsetInCmd < 0 || strOffsetInCmd > cmdSize {
				log.Warn("macho: malformed string offset in load command, skipping", "path", pathForLog)
				curOff += cmdSize
				continue
			}

			strStart := cmdStart + strOffsetInCmd
			allocated := cmdSize - strOffsetInCmd
			strEnd := strStart + allocated
			if strEnd > len(buf) {
				curOff += cmdSize
				continue
			}

			raw := buf[strStart:strEnd]
			nul := indexByte(raw, 0)
			var oldPath string
			if nul >= 0 {
				oldPath = string(raw[:nul])
			} else {
				oldPath = string(raw)
			}

			if newPath, ok := replaceAll(oldPath, replacements); ok {
				if len(newPath)+1 > allocated {
					skipped = append(skipped, SkippedPath{OldPath: oldPath, NewPath: newPath})
				} else {
					patches = append(patches, patchInfo{
						absoluteOffset: strStart,
						allocatedLen:   allocated,
						replacement:    newPath,
					})
				}
			}
		}

		curOff += cmdSize
	}

	return patches, skipped, nil
}

// replaceAll applies every placeholder/value pair in replacements to s
// in map iteration order, the same substring-replacement behavior the
// reference implementation uses. Returns (result, true) only if at
// least one replacement fired.
func replaceAll(s string, replacements map[string]string) (string, bool) {
	cur := s
	changed := false
	for placeholder, value := range replacements {
		if strings.Contains(cur, placeholder) {
			cur = strings.ReplaceAll(cur, placeholder, value)
			changed = true
		}
	}
	if !changed {
		return "", false
	}
	return cur, true
}

// applyPatches is Phase B: a pure buffer editor. It never parses.
func applyPatches(buf []byte, patches []patchInfo) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)

	for _, p := range patches {
		if p.absoluteOffset+p.allocatedLen > len(out) {
			continue // bounds violated; should never happen after Phase A
		}
		copy(out[p.absoluteOffset:], p.replacement)
		for i := p.absoluteOffset + len(p.replacement); i < p.absoluteOffset+p.allocatedLen; i++ {
			out[i] = 0
		}
	}
	return out
}

// atomicWrite persists buf over path using write-temp + fsync + rename
// in the same directory, so a crash never leaves a half-written binary.
func atomicWrite(path string, buf []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", path, err)
	}

	t, err := renameio.TempFile(dir, path)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer t.Cleanup()

	info, statErr := os.Stat(path)
	if statErr == nil {
		_ = t.Chmod(info.Mode())
	}

	if _, err := t.Write(buf); err != nil {
		return fmt.Errorf("writing patched buffer for %s: %w", path, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func resign(path string) error {
	return resignImpl(path)
}

func indexByte(b []byte, c byte) int {
	return bytes.IndexByte(b, c)
}

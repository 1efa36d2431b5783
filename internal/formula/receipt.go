package formula

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/google/renameio"
)

// Receipt is the small JSON document written once, at the end of a
// successful install, at the root of every formula installation.
type Receipt struct {
	Name               string         `json:"name"`
	Version            string         `json:"version"`
	Time               string         `json:"time"`
	Source             ReceiptSource  `json:"source"`
	BuiltOn            ReceiptBuiltOn `json:"built_on"`
	ResourcesInstalled []string       `json:"resources_installed"`
}

type ReceiptSource struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type ReceiptBuiltOn struct {
	OS          string `json:"os"`
	Arch        string `json:"arch"`
	PlatformTag string `json:"platform_tag"`
}

// Write marshals the receipt as indented JSON to path, stamping Time
// with the current moment if unset. Like the Mach-O patcher's on-disk
// writes, this goes through renameio so a crash mid-write never leaves
// a truncated receipt behind.
func (r Receipt) Write(path string) error {
	if r.Time == "" {
		r.Time = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing receipt %s: %w", path, err)
	}
	return nil
}

func currentArch() string {
	return runtime.GOARCH
}

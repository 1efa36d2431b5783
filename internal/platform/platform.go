/*
Package platform detects the macOS platform tag used to select and
label bottles, such as "arm64_sonoma" or "monterey".
*/
package platform

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// fallbackTag is used when sw_vers cannot be run or its output cannot
// be parsed. Downstream bottle selection may then choose the wrong
// bottle, so a caller that needs correctness under a broken sw_vers
// must check DetectTag's error return rather than trust the fallback
// silently.
const fallbackTag = "monterey"

// codenames maps the macOS major product version to its marketing
// codename, the token Homebrew-style platform tags embed.
var codenames = map[int]string{
	11: "big_sur",
	12: "monterey",
	13: "ventura",
	14: "sonoma",
	15: "sequoia",
}

// DetectTag returns the platform tag for the current machine: the
// macOS codename for Intel, or "<arch>_<codename>" for Apple Silicon
// and other non-amd64 architectures. err is non-nil when sw_vers could
// not be run or parsed; tag is still set to fallbackTag (with the same
// arch prefix) in that case so callers that tolerate imprecision need
// not special-case the error.
func DetectTag() (tag string, err error) {
	codename, verErr := productCodename()
	if verErr != nil {
		log.Warn("platform: sw_vers failed, falling back", "fallback", fallbackTag, "error", verErr)
		return archPrefix() + fallbackTag, verErr
	}
	return archPrefix() + codename, nil
}

func archPrefix() string {
	if runtime.GOARCH == "amd64" {
		return ""
	}
	return runtime.GOARCH + "_"
}

func productCodename() (string, error) {
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return "", err
	}
	version := strings.TrimSpace(string(bytes.TrimSpace(out)))
	major := version
	if idx := strings.Index(version, "."); idx >= 0 {
		major = version[:idx]
	}
	n, err := strconv.Atoi(major)
	if err != nil {
		return "", err
	}
	name, ok := codenames[n]
	if !ok {
		return "", fmt.Errorf("unrecognized macOS product version %q", version)
	}
	return name, nil
}

/*
Package quarantine reads and writes the macOS com.apple.quarantine
extended attribute on staged apps and cask artifacts.
*/
package quarantine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// flags disables translocation and quarantine mirroring, matching the
// value Homebrew itself stamps on downloaded apps.
const flags = "0181"

// buildValue renders the fixed attribute shape:
// "0181;<unix_secs_hex>;<agent>;<uuid_v4_uppercase>".
func buildValue(agent string) string {
	secs := strconv.FormatInt(time.Now().Unix(), 16)
	id := strings.ToUpper(uuid.New().String())
	return fmt.Sprintf("%s;%s;%s;%s", flags, secs, agent, id)
}

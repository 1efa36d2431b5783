package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sps-pm/sps-core/internal/macho"
	"github.com/sps-pm/sps-core/internal/sperrors"
)

var machoReplacements []string

var patchMachoCmd = &cobra.Command{
	Use:   "patch-macho <file>",
	Short: "Rewrite install-path placeholders inside a Mach-O file in place",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		replacements, err := parseReplacements(machoReplacements)
		if err != nil {
			fail(err)
		}

		patched, skipped, err := macho.Patch(args[0], replacements)
		if err != nil {
			fail(err)
		}
		if !patched {
			cmd.Println("no patches applied")
		}
		for _, s := range skipped {
			cmd.Printf("skipped (replacement too long): %s -> %s\n", s.OldPath, s.NewPath)
		}
	},
}

func parseReplacements(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		placeholder, value, ok := strings.Cut(pair, "=")
		if !ok || placeholder == "" {
			return nil, fmt.Errorf("%w: --replace value %q must be PLACEHOLDER=VALUE", sperrors.ErrGeneric, pair)
		}
		out[placeholder] = value
	}
	return out, nil
}

func init() {
	patchMachoCmd.Flags().StringArrayVar(&machoReplacements, "replace", nil, "PLACEHOLDER=VALUE path substitution, repeatable")
	_ = patchMachoCmd.MarkFlagRequired("replace")
}

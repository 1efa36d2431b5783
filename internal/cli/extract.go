package cli

import (
	"github.com/spf13/cobra"

	"github.com/sps-pm/sps-core/internal/archive"
)

var stripComponents int

var extractCmd = &cobra.Command{
	Use:   "extract <archive> <stage>",
	Short: "Extract an archive into a stage directory",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		src, stage := args[0], args[1]
		kind := archive.DetectKind(src)

		ext := archive.NewExtractor()
		strip := stripComponents
		if strip < 0 {
			root, err := ext.InferRoot(src, kind)
			if err != nil {
				fail(err)
			}
			if root != "" {
				strip = 1
			} else {
				strip = 0
			}
		}

		skipped, err := ext.Extract(src, stage, strip, kind)
		if err != nil {
			fail(err)
		}
		for _, s := range skipped {
			cmd.Printf("skipped (already exists): %s\n", s)
		}
	},
}

func init() {
	extractCmd.Flags().IntVar(&stripComponents, "strip", -1, "leading path components to drop (-1 = auto-infer)")
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/sps-pm/sps-core/internal/config"
	"github.com/sps-pm/sps-core/internal/formula"
)

var (
	bottleName              string
	bottleVersion           string
	bottlePrefixPlaceholder string
	bottleCellarPlaceholder string
	bottleSourceURL         string
)

var installBottleCmd = &cobra.Command{
	Use:   "install-bottle <bottle-archive>",
	Short: "Pour a formula bottle into the cellar",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		f := config.FormulaDefinition{
			Name:              bottleName,
			Version:           bottleVersion,
			PrefixPlaceholder: bottlePrefixPlaceholder,
			CellarPlaceholder: bottleCellarPlaceholder,
			SourceURL:         bottleSourceURL,
		}

		ins := formula.NewInstaller(cfg)
		if _, err := ins.Install(context.Background(), f, args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	installBottleCmd.Flags().StringVar(&bottleName, "name", "", "formula name")
	installBottleCmd.Flags().StringVar(&bottleVersion, "version", "", "formula version")
	installBottleCmd.Flags().StringVar(&bottlePrefixPlaceholder, "prefix-placeholder", "@@HOMEBREW_PREFIX@@", "build-time prefix placeholder token")
	installBottleCmd.Flags().StringVar(&bottleCellarPlaceholder, "cellar-placeholder", "@@HOMEBREW_CELLAR@@", "build-time cellar placeholder token")
	installBottleCmd.Flags().StringVar(&bottleSourceURL, "source-url", "", "source URL recorded in the receipt")
	_ = installBottleCmd.MarkFlagRequired("name")
	_ = installBottleCmd.MarkFlagRequired("version")
}

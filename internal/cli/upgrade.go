package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sps-pm/sps-core/internal/manifest"
	"github.com/sps-pm/sps-core/internal/upgrade"
)

var (
	upgradeCaskDefPath string
	upgradeOldVersion  string
)

var upgradeCaskCmd = &cobra.Command{
	Use:   "upgrade <stage>",
	Short: "Upgrade an installed cask to a new version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		cd := loadCaskDefinition(upgradeCaskDefPath)

		oldVersionDir := filepath.Join(cfg.Caskroom, cd.Token, upgradeOldVersion)
		oldManifestPath := filepath.Join(oldVersionDir, "manifest.json")
		oldManifest, err := manifest.Load(oldManifestPath)
		if err != nil {
			cmd.PrintErrf("warning: could not load old manifest %s: %v\n", oldManifestPath, err)
			oldManifest = manifest.New(cd.Token, upgradeOldVersion)
		}

		orch := upgrade.NewOrchestrator(cfg)
		old := upgrade.OldInstall{
			Version:    upgradeOldVersion,
			VersionDir: oldVersionDir,
			Manifest:   oldManifest,
		}

		if _, err := orch.Upgrade(context.Background(), old, cd, args[0]); err != nil {
			fail(err)
		}
	},
}

func init() {
	upgradeCaskCmd.Flags().StringVar(&upgradeCaskDefPath, "cask", "", "path to new cask definition YAML")
	upgradeCaskCmd.Flags().StringVar(&upgradeOldVersion, "old-version", "", "currently installed version")
	_ = upgradeCaskCmd.MarkFlagRequired("cask")
	_ = upgradeCaskCmd.MarkFlagRequired("old-version")
}

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sps-pm/sps-core/internal/cask"
	"github.com/sps-pm/sps-core/internal/config"
)

var caskDefPath string

var installCaskCmd = &cobra.Command{
	Use:   "install-cask <stage>",
	Short: "Place a cask's artifacts from a staged directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		cd := loadCaskDefinition(caskDefPath)

		placer := &cask.Placer{Config: cfg}
		versionDir := filepath.Join(cfg.Caskroom, cd.Token, cd.Version)

		records, err := placer.Place(context.Background(), cd, args[0], versionDir)
		if err != nil {
			fail(err)
		}
		for _, r := range records {
			cmd.Printf("%s: %s\n", r.Kind, r.Path+r.LinkPath)
		}
	},
}

func init() {
	installCaskCmd.Flags().StringVar(&caskDefPath, "cask", "", "path to cask definition YAML")
	_ = installCaskCmd.MarkFlagRequired("cask")
}

func loadCaskDefinition(path string) config.CaskDefinition {
	data, err := os.ReadFile(path)
	if err != nil {
		fail(fmt.Errorf("reading cask definition %s: %w", path, err))
	}
	var cd config.CaskDefinition
	if err := yaml.Unmarshal(data, &cd); err != nil {
		fail(fmt.Errorf("parsing cask definition %s: %w", path, err))
	}
	return cd
}

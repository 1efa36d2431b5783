/*
Package cli provides the command-line entry points that exercise the
installer library end to end. A full package manager's UX — dependency
resolution, catalog search, remote fetch — is out of scope; these
commands exist to drive extraction, relocation, placement, and upgrade
directly against already-staged archives.
*/
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sps-pm/sps-core/internal/config"
)

var (
	verbose bool
	debug   bool
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "sps-core",
	Short: "Core installation pipeline for bottles and casks",
	Long: `sps-core extracts archives, relocates Mach-O binaries, places
cask artifacts, and drives formula and cask installs and upgrades.

It is the post-fetch installation pipeline only: it does not fetch
archives, resolve dependencies, or browse a package catalog.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func initLogging() {
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
	case verbose:
		log.SetLevel(log.InfoLevel)
	default:
		log.SetLevel(log.WarnLevel)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to installer config YAML")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(installBottleCmd)
	rootCmd.AddCommand(installCaskCmd)
	rootCmd.AddCommand(upgradeCaskCmd)
	rootCmd.AddCommand(patchMachoCmd)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

// loadConfig loads the installer config from cfgPath, or falls back to
// Default("/usr/local") when no --config was given.
func loadConfig() *config.CoreConfig {
	if cfgPath == "" {
		return config.Default("/usr/local")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	if err := cfg.Validate(); err != nil {
		fail(err)
	}
	return cfg
}

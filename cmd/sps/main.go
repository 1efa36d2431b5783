/*
Command sps drives the installation pipeline: extract, patch-macho,
install-bottle, install-cask, and upgrade.
*/
package main

import (
	"os"

	"github.com/sps-pm/sps-core/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

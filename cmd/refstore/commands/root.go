// Package commands implements refstore's CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "refstore",
	Short: "refstore - content-addressed reference store",
	Long: `refstore manages a content-addressed VCS reference store: branches,
tags, and symbolic refs backed by a pluggable storage engine (loose
files or an embedded key-value store).

Use "refstore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/refstore/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(forEachRefCmd)
	rootCmd.AddCommand(updateRefCmd)
	rootCmd.AddCommand(symbolicRefCmd)
	rootCmd.AddCommand(reflogCmd)
	rootCmd.AddCommand(packRefsCmd)
	rootCmd.AddCommand(checkRefFormatCmd)
	rootCmd.AddCommand(serveCmd)
}

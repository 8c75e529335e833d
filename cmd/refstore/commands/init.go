package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultPath()
		}
		if !initForce {
			if exists, err := config.PathExists(path); err != nil {
				return err
			} else if exists {
				return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
			}
		}
		if err := config.WriteSample(path); err != nil {
			return err
		}
		fmt.Printf("Configuration file created at: %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/refname"
)

var checkRefFormatAllowOneLevel bool

var checkRefFormatCmd = &cobra.Command{
	Use:   "check-ref-format <refname>",
	Short: "Validate a refname's syntax without touching any backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var flags refname.Flags
		if checkRefFormatAllowOneLevel {
			flags |= refname.AllowOneLevel
		}
		if reason := refname.Validate(args[0], flags); reason != refname.RejectNone {
			return fmt.Errorf("invalid refname: %s", reason)
		}
		return nil
	},
}

func init() {
	checkRefFormatCmd.Flags().BoolVar(&checkRefFormatAllowOneLevel, "allow-onelevel", false, "permit a refname with a single component")
}

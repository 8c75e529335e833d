package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/refs"
)

var symbolicRefMessage string

var symbolicRefCmd = &cobra.Command{
	Use:   "symbolic-ref <name> [target]",
	Short: "Read or write a symbolic ref",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		backend, closer, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closer()

		name := args[0]
		if len(args) == 1 {
			resolved, err := refs.Resolve(ctx, backend, name, refs.NoRecurse)
			if err != nil {
				return err
			}
			fmt.Println(resolved.Name)
			return nil
		}

		return backend.CreateSymref(ctx, name, args[1], symbolicRefMessage)
	},
}

func init() {
	symbolicRefCmd.Flags().StringVarP(&symbolicRefMessage, "message", "m", "", "reflog message")
}

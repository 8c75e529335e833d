package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/refs"
)

var reflogCmd = &cobra.Command{
	Use:   "reflog <refname>",
	Short: "Show a ref's reflog, newest entry first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		backend, closer, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closer()

		name := args[0]
		return backend.ForEachReflogEntReverse(ctx, name, func(e refs.ReflogEntry) error {
			t := time.Unix(e.Time, 0).UTC()
			fmt.Printf("%s..%s %s %s: %s\n", e.Old.String()[:7], e.New.String()[:7], e.Identity, t.Format(time.RFC3339), e.Message)
			return nil
		})
	},
}

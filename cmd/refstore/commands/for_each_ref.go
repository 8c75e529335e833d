package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/refs"
)

var forEachRefPrefix string

var forEachRefCmd = &cobra.Command{
	Use:   "for-each-ref",
	Short: "List refs in lexicographic order",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		backend, closer, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closer()

		return refs.ForEachRef(ctx, backend, forEachRefPrefix, 0, 0, func(e refs.RefEntry) error {
			fmt.Printf("%s %s\n", e.OID.String(), e.Refname)
			return nil
		})
	},
}

func init() {
	forEachRefCmd.Flags().StringVar(&forEachRefPrefix, "prefix", "", "only list refs under this prefix")
}

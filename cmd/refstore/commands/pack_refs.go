package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/refs"
)

var (
	packRefsAll   bool
	packRefsPrune bool
)

var packRefsCmd = &cobra.Command{
	Use:   "pack-refs",
	Short: "Consolidate loose refs into the packed-refs catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		backend, closer, err := openBackend(ctx)
		if err != nil {
			return err
		}
		defer closer()

		return backend.PackRefs(ctx, refs.PackRefsOptions{AllRefs: packRefsAll, Prune: packRefsPrune})
	},
}

func init() {
	packRefsCmd.Flags().BoolVar(&packRefsAll, "all", false, "pack every ref, not just refs/tags and refs/heads")
	packRefsCmd.Flags().BoolVar(&packRefsPrune, "prune", true, "remove loose refs once packed")
}

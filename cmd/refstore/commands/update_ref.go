package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/refstore/internal/oid"
	"github.com/marmos91/refstore/internal/refs"
)

var (
	updateRefOld     string
	updateRefDelete  bool
	updateRefMessage string
)

var updateRefCmd = &cobra.Command{
	Use:   "update-ref <refname> [new-value]",
	Short: "Update, create, or delete a single ref with optional CAS",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		coord, backend, closer, err := openCoordinator(ctx)
		if err != nil {
			return err
		}
		defer closer()

		name := args[0]
		tx := refs.Begin(backend)

		var oldPtr *oid.OID
		if updateRefOld != "" {
			o, err := oid.Parse(updateRefOld)
			if err != nil {
				return fmt.Errorf("invalid old value: %w", err)
			}
			oldPtr = &o
		}

		if updateRefDelete {
			if err := tx.Delete(name, oldPtr, 0, updateRefMessage); err != nil {
				return err
			}
		} else {
			if len(args) != 2 {
				return fmt.Errorf("new-value is required unless --delete is set")
			}
			newOID, err := oid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid new value: %w", err)
			}
			if err := tx.Update(name, &newOID, oldPtr, 0, updateRefMessage); err != nil {
				return err
			}
		}

		result, err := coord.Commit(ctx, tx)
		if err != nil {
			return err
		}
		if result.SplitWarning != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), result.SplitWarning)
		}
		return nil
	},
}

func init() {
	updateRefCmd.Flags().StringVar(&updateRefOld, "old", "", "expected current value (CAS); omitted or empty means no expectation")
	updateRefCmd.Flags().BoolVarP(&updateRefDelete, "delete", "d", false, "delete the ref instead of updating it")
	updateRefCmd.Flags().StringVarP(&updateRefMessage, "message", "m", "", "reflog message")
}

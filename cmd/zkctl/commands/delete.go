package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/internal/cli/prompt"
)

var deleteVersion int32

var deleteCmd = &cobra.Command{
	Use:     "delete <path>",
	Aliases: []string{"rm"},
	Short:   "Delete a znode",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete znode %q?", args[0]), Flags.Force)
		if err != nil {
			if prompt.IsAborted(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return err
		}
		if !confirmed {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.DeleteSync(ctx, args[0], deleteVersion); err != nil {
			return fmt.Errorf("delete %s: %w", args[0], err)
		}

		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s", args[0]))
		return nil
	},
}

func init() {
	deleteCmd.Flags().Int32VarP(&deleteVersion, "version", "V", -1, "Expected current version, -1 to skip the check")
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync <path>",
	Short: "Flush pending updates for a path before a subsequent read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		path, err := client.SyncSync(ctx, args[0])
		if err != nil {
			return fmt.Errorf("sync %s: %w", args[0], err)
		}

		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Synced %s", path))
		return nil
	},
}

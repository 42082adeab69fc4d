package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var setVersion int32

var setCmd = &cobra.Command{
	Use:   "set <path> <data>",
	Short: "Set the data of a znode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		stat, err := client.SetSync(ctx, args[0], []byte(args[1]), setVersion)
		if err != nil {
			return fmt.Errorf("set %s: %w", args[0], err)
		}

		if Flags.Output == "table" || Flags.Output == "" {
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Data set for %s (version %d)", args[0], stat.Version))
			return nil
		}
		return printResult(stat, statTable(stat))
	},
}

func init() {
	setCmd.Flags().Int32VarP(&setVersion, "version", "V", -1, "Expected current version, -1 to skip the check")
}

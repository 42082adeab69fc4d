package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/pkg/zk"
)

var (
	createEphemeral bool
	createSequence  bool
)

var createCmd = &cobra.Command{
	Use:   "create <path> [data]",
	Short: "Create a znode",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		}

		var flags zk.CreateFlag
		if createEphemeral {
			flags |= zk.FlagEphemeral
		}
		if createSequence {
			flags |= zk.FlagSequence
		}

		path, err := client.CreateSync(ctx, args[0], data, zk.OpenACLUnsafe, flags)
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}

		if Flags.Output == "table" || Flags.Output == "" {
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Created %s", path))
			return nil
		}
		result := struct {
			Path string `json:"path" yaml:"path"`
		}{Path: path}
		return printResult(result, nil)
	},
}

func init() {
	createCmd.Flags().BoolVarP(&createEphemeral, "ephemeral", "e", false, "Create an ephemeral node")
	createCmd.Flags().BoolVarP(&createSequence, "sequence", "s", false, "Append a monotonic sequence suffix to the name")
}

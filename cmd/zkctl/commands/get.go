package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/pkg/zk"
)

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get the data and stat of a znode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		data, stat, err := client.GetSync(ctx, args[0], false)
		if err != nil {
			return fmt.Errorf("get %s: %w", args[0], err)
		}

		if Flags.Output == "table" || Flags.Output == "" {
			fmt.Println(string(data))
			return nil
		}

		result := struct {
			Path string   `json:"path" yaml:"path"`
			Data string   `json:"data" yaml:"data"`
			Stat *zk.Stat `json:"stat" yaml:"stat"`
		}{Path: args[0], Data: string(data), Stat: stat}
		return printResult(result, nil)
	},
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/internal/cli/output"
)

var lsCmd = &cobra.Command{
	Use:     "ls <path>",
	Aliases: []string{"children"},
	Short:   "List the children of a znode",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		children, _, err := client.GetChildrenSync(ctx, args[0], false)
		if err != nil {
			return fmt.Errorf("ls %s: %w", args[0], err)
		}

		table := output.NewTableData("NAME")
		for _, c := range children {
			table.AddRow(c)
		}
		return printResult(children, table)
	},
}

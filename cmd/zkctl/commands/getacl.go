package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var getACLCmd = &cobra.Command{
	Use:   "getacl <path>",
	Short: "Get the ACL of a znode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		acl, _, err := client.GetACLSync(ctx, args[0])
		if err != nil {
			return fmt.Errorf("getacl %s: %w", args[0], err)
		}

		return printResult(acl, aclTable(acl))
	},
}

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/pkg/zk"
)

var setACLVersion int32

var setACLCmd = &cobra.Command{
	Use:   "setacl <path> <scheme:id:perms>...",
	Short: "Set the ACL of a znode",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		acl, err := parseACLEntries(args[1:])
		if err != nil {
			return err
		}

		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		stat, err := client.SetACLSync(ctx, args[0], acl, setACLVersion)
		if err != nil {
			return fmt.Errorf("setacl %s: %w", args[0], err)
		}

		if Flags.Output == "table" || Flags.Output == "" {
			printSuccess(cmd.OutOrStdout(), fmt.Sprintf("ACL set for %s (version %d)", args[0], stat.Version))
			return nil
		}
		return printResult(stat, statTable(stat))
	},
}

func init() {
	setACLCmd.Flags().Int32VarP(&setACLVersion, "version", "V", -1, "Expected current ACL version, -1 to skip the check")
}

// parseACLEntries parses "scheme:id:perms" strings, where perms is any
// combination of r/w/c/d/a (read/write/create/delete/admin).
func parseACLEntries(entries []string) ([]zk.ACL, error) {
	acl := make([]zk.ACL, 0, len(entries))
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid ACL entry %q, want scheme:id:perms", e)
		}
		perms, err := parsePerms(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid ACL entry %q: %w", e, err)
		}
		acl = append(acl, zk.ACL{
			Perms: perms,
			ID:    zk.Id{Scheme: parts[0], ID: parts[1]},
		})
	}
	return acl, nil
}

func parsePerms(s string) (int32, error) {
	var perms int32
	for _, c := range s {
		switch c {
		case 'r':
			perms |= zk.PermRead
		case 'w':
			perms |= zk.PermWrite
		case 'c':
			perms |= zk.PermCreate
		case 'd':
			perms |= zk.PermDelete
		case 'a':
			perms |= zk.PermAdmin
		default:
			return 0, fmt.Errorf("unknown permission bit %q", c)
		}
	}
	return perms, nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/zkgo/pkg/zk/auth"
)

var (
	addAuthUser string
	addAuthPass string
)

var addAuthCmd = &cobra.Command{
	Use:   "addauth <scheme>",
	Short: "Present a credential for the current session (digest or jwt)",
	Long: `addauth presents a credential via the SETAUTH sub-protocol.

Supported schemes:
  digest --user <user> --pass <pass>
  jwt    --pass <token>`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var scheme string
		var cred []byte

		switch args[0] {
		case "digest":
			if addAuthUser == "" {
				return fmt.Errorf("digest scheme requires --user")
			}
			scheme, cred = auth.Digest(addAuthUser, addAuthPass)
		case "jwt":
			if addAuthPass == "" {
				return fmt.Errorf("jwt scheme requires --pass <token>")
			}
			scheme, cred = auth.JWT(addAuthPass)
		default:
			return fmt.Errorf("unsupported scheme %q (want digest or jwt)", args[0])
		}

		ctx := context.Background()
		client, err := connect(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.AddAuthSync(ctx, scheme, cred); err != nil {
			return fmt.Errorf("addauth %s: %w", scheme, err)
		}

		printSuccess(cmd.OutOrStdout(), fmt.Sprintf("Authenticated with scheme %s", scheme))
		return nil
	},
}

func init() {
	addAuthCmd.Flags().StringVar(&addAuthUser, "user", "", "Username (digest scheme)")
	addAuthCmd.Flags().StringVar(&addAuthPass, "pass", "", "Password or token (digest/jwt scheme)")
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/provision"
	"github.com/mistio/mist/internal/ui"
)

var secgroupCmd = &cobra.Command{
	Use:   "secgroup",
	Short: "Manage security groups",
}

var secgroupCreateCmd = &cobra.Command{
	Use:   "create <backend-index> <name> <description>",
	Short: "Create a security group open to the world",
	Long: `Create a security group that allows every TCP and UDP port and all
ICMP traffic from anywhere. Creating a group that already exists succeeds.

Only EC2 backends support security groups.

Examples:
  mist secgroup create 0 mistio "Security group created by mist.io"`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBackendIndex(args[0])
		if err != nil {
			return err
		}
		info := provision.GroupInfo{Name: args[1], Description: args[2]}
		return secgroupCreate(cmd.Context(), cmd.OutOrStdout(), runtimeOpts, index, info)
	},
}

func init() {
	secgroupCmd.AddCommand(secgroupCreateCmd)
	rootCmd.AddCommand(secgroupCmd)
}

func secgroupCreate(ctx context.Context, w io.Writer, rt config.Runtime, index int, info provision.GroupInfo) error {
	_, b, conn, err := openBackend(ctx, rt, index)
	if err != nil {
		return err
	}

	if !provision.CreateSecurityGroup(ctx, conn, info) {
		return errors.New(errors.ErrProvision,
			fmt.Sprintf("Couldn't create security group '%s' on '%s'", info.Name, b.Label()),
			"Security groups need an EC2 backend, a name and a description")
	}

	if rt.JSON {
		return WriteJSONSuccess(w, map[string]interface{}{"backend": index, "group": info.Name, "created": true})
	}
	fmt.Fprintf(w, "%s Security group '%s' is ready on '%s'\n", ui.SuccessStyle.Render(ui.SymbolSuccess), info.Name, b.Label())
	return nil
}

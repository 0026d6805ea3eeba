package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/actions"
	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/ui"
	"github.com/mistio/mist/internal/util"
)

var machinesCmd = &cobra.Command{
	Use:   "machines <backend-index>",
	Short: "List machines and the actions they allow",
	Long: `List the machines on a backend with their state, addresses and the
lifecycle actions (start, stop, reboot, destroy, tag) available for each.

Examples:
  mist machines 0
  mist machines 0 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBackendIndex(args[0])
		if err != nil {
			return err
		}
		return machinesList(cmd.Context(), cmd.OutOrStdout(), runtimeOpts, index)
	},
}

func init() {
	rootCmd.AddCommand(machinesCmd)
}

type machineView struct {
	backend.Machine
	Provider backend.Provider `json:"provider"`
	Actions  actions.Set      `json:"actions"`
}

func machinesList(ctx context.Context, w io.Writer, rt config.Runtime, index int) error {
	_, b, conn, err := openBackend(ctx, rt, index)
	if err != nil {
		return err
	}

	machines, err := conn.ListMachines(ctx)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("Couldn't list machines on '%s'", b.Label()),
			"Check the credentials and that the provider API is reachable")
	}
	sort.SliceStable(machines, func(i, j int) bool { return machines[i].Name < machines[j].Name })

	views := make([]machineView, len(machines))
	for i, m := range machines {
		views[i] = machineView{Machine: m, Provider: conn.Type(), Actions: actions.ForMachine(m, conn)}
	}
	if rt.JSON {
		return WriteJSONSuccess(w, views)
	}

	rows := make([]ui.MachineTableRow, len(views))
	for i, v := range views {
		ip := ""
		if len(v.PublicIPs) > 0 {
			ip = v.PublicIPs[0]
		} else if len(v.PrivateIPs) > 0 {
			ip = v.PrivateIPs[0]
		}
		rows[i] = ui.MachineTableRow{
			ID:      v.ID,
			Name:    v.Name,
			State:   ui.StateSymbol(string(v.State)) + " " + string(v.State),
			IP:      ip,
			Actions: v.Actions.Names(),
		}
	}
	fmt.Fprintln(w, ui.RenderMachineTable(rows))
	if len(rows) > 0 {
		fmt.Fprintln(w, ui.MutedStyle.Render(fmt.Sprintf("%d %s on '%s'",
			len(rows), util.Pluralize(len(rows), "machine", "machines"), b.Label())))
	}
	return nil
}

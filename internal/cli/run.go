package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/exec"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Backend   int
	MachineID string
	Host      string
	Command   string
	SSH       SSHFlags
}

var runSSHFlags SSHFlags

var runCmd = &cobra.Command{
	Use:   "run <backend-index> <machine-id> <host> -- <command>",
	Short: "Run a shell command on a machine over SSH",
	Long: `Run a command on a machine and print its combined output.

The command runs as --user (default root) with the private half of a stored
keypair. A non-zero exit is reported as a warning; the output is still
printed. If the machine answers with a "Please login as the user ..."
banner, it's tagged with that user and the command is retried once.

Examples:
  mist run 0 i-0abc123 54.12.34.56 -- uptime
  mist run 0 i-0abc123 54.12.34.56 --keypair default -- df -h
  mist run 1 8f3c web01 --ssh-config ~/.ssh/config -- 'cat /etc/os-release'`,
	Args: cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBackendIndex(args[0])
		if err != nil {
			return err
		}
		opts := RunOptions{
			Backend:   index,
			MachineID: args[1],
			Host:      args[2],
			Command:   strings.Join(args[3:], " "),
			SSH:       runSSHFlags,
		}
		return runRemote(cmd.Context(), cmd.OutOrStdout(), runtimeOpts, opts)
	},
}

func init() {
	AddSSHFlags(runCmd, &runSSHFlags)
	rootCmd.AddCommand(runCmd)
}

// selectKeypair picks the named keypair, or the only one stored.
func selectKeypair(s *config.Settings, name string) (string, config.Keypair, error) {
	if name != "" {
		kp, err := s.Keypair(name)
		return name, kp, err
	}
	names := keypairNames(s)
	switch len(names) {
	case 0:
		return "", config.Keypair{}, errors.New(errors.ErrConfig,
			"No keypairs stored",
			"Add one with: mist keys add <name> --private ~/.ssh/id_rsa")
	case 1:
		return names[0], s.Keypairs[names[0]], nil
	default:
		return "", config.Keypair{}, errors.New(errors.ErrConfig,
			"More than one keypair stored",
			"Pick one with --keypair: "+strings.Join(names, ", "))
	}
}

func runRemote(ctx context.Context, w io.Writer, rt config.Runtime, opts RunOptions) error {
	defaults, err := opts.SSH.SessionDefaults()
	if err != nil {
		return err
	}

	s, _, conn, err := openBackend(ctx, rt, opts.Backend)
	if err != nil {
		return err
	}
	name, kp, err := selectKeypair(s, opts.SSH.Keypair)
	if err != nil {
		return err
	}
	if strings.TrimSpace(kp.Private) == "" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Keypair '%s' has no private key", name),
			"Store it with: mist keys add "+name+" --private <path>")
	}

	output, err := newExecutor(defaults).RunCommand(ctx, exec.Request{
		Conn:       conn,
		MachineID:  opts.MachineID,
		Host:       opts.Host,
		SSHUser:    opts.SSH.User,
		PrivateKey: kp.Private,
		Command:    opts.Command,
	})
	if err != nil {
		return err
	}

	if rt.JSON {
		return WriteJSONSuccess(w, map[string]interface{}{"output": output})
	}
	fmt.Fprint(w, output)
	return nil
}

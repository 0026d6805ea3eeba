package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/pkg/sshutil"
)

// SSHFlags holds the connection flags shared by commands that log in to machines.
type SSHFlags struct {
	User       string
	Keypair    string
	SSHConfig  string
	KnownHosts string
	Timeout    string
}

// AddSSHFlags registers --user, --keypair, --ssh-config, --known-hosts and --timeout.
func AddSSHFlags(cmd *cobra.Command, flags *SSHFlags) {
	cmd.Flags().StringVarP(&flags.User, "user", "u", "", "SSH user (default root)")
	cmd.Flags().StringVarP(&flags.Keypair, "keypair", "k", "", "stored keypair to log in with (default: the only one)")
	cmd.Flags().StringVar(&flags.SSHConfig, "ssh-config", "", "resolve the host through this ssh_config file")
	cmd.Flags().StringVar(&flags.KnownHosts, "known-hosts", "", "verify host keys against this known_hosts file")
	cmd.Flags().StringVar(&flags.Timeout, "timeout", "", "SSH connect timeout (e.g., 5s, 2m)")
}

// SessionDefaults turns the flags into connection settings for the executor.
func (f SSHFlags) SessionDefaults() (sshutil.SessionConfig, error) {
	timeout, err := ParseTimeout(f.Timeout)
	if err != nil {
		return sshutil.SessionConfig{}, err
	}
	return sshutil.SessionConfig{
		Timeout:        timeout,
		UseSSHConfig:   f.SSHConfig != "",
		SSHConfigPath:  f.SSHConfig,
		KnownHostsPath: f.KnownHosts,
	}, nil
}

// ParseTimeout parses a timeout string into a duration.
// Returns zero duration if the flag is empty.
func ParseTimeout(flag string) (time.Duration, error) {
	if flag == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(flag)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid timeout", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}

// parseBackendIndex parses the positional backend argument.
// Backends are addressed by their position in settings.yaml.
func parseBackendIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' is not a backend index", arg),
			"Backends are numbered from 0, see: mist backends list")
	}
	return index, nil
}

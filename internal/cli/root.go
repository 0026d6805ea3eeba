package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/logger"
	"github.com/mistio/mist/internal/util"
)

// v holds the outer configuration layer: flags and MIST_* environment.
var v = config.NewViper()

// runtimeOpts is resolved from v before any subcommand runs.
var runtimeOpts config.Runtime

var rootCmd = &cobra.Command{
	Use:   "mist",
	Short: "Manage machines across cloud backends",
	Long: `mist keeps a list of cloud backends in settings.yaml and runs
lifecycle, provisioning and remote commands against their machines.

Supported providers: EC2 (all regions), Rackspace, Rackspace first gen,
Linode and OpenStack.

Examples:
  mist backends list
  mist machines 0
  mist run 0 i-0abc123 ec2-1-2-3-4.compute.amazonaws.com -- uptime`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		runtimeOpts = config.ResolveRuntime(v)
		machineMode = runtimeOpts.JSON
		logger.SetDebug(runtimeOpts.Debug)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("settings", config.SettingsFileName, "path to settings.yaml (env MIST_SETTINGS)")
	pf.String("core-uri", "", "override core_uri from settings (env MIST_CORE_URI)")
	pf.Bool("json", false, "output machine-readable JSON")
	pf.Bool("debug", false, "enable debug logging (env MIST_DEBUG)")

	_ = v.BindPFlag(config.KeySettings, pf.Lookup("settings"))
	_ = v.BindPFlag(config.KeyCoreURI, pf.Lookup("core-uri"))
	_ = v.BindPFlag(config.KeyJSON, pf.Lookup("json"))
	_ = v.BindPFlag(config.KeyDebug, pf.Lookup("debug"))
}

// Viper exposes the outer configuration layer, mainly for tests.
func Viper() *viper.Viper {
	return v
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if stderrors.Is(err, errReported) {
		os.Exit(1)
	}

	if isUnknownCommandError(err) {
		err = withCommandSuggestion(err)
	}

	if machineMode {
		_ = WriteJSONFromError(os.Stdout, err)
	} else {
		fmt.Fprint(os.Stderr, err.Error())
		if !strings.HasSuffix(err.Error(), "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}
	os.Exit(1)
}

// isUnknownCommandError reports whether cobra rejected the arguments.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of cobra's
// `unknown command "foo" for "mist"` message.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func withCommandSuggestion(err error) error {
	name := extractUnknownCommand(err)
	if name == "" {
		return err
	}

	var commands []string
	for _, c := range rootCmd.Commands() {
		if c.IsAvailableCommand() {
			commands = append(commands, c.Name())
		}
	}

	suggestion := "Run 'mist --help' to see available commands"
	if similar := util.SuggestSimilar(name, commands, 3); len(similar) > 0 {
		suggestion = "Did you mean: " + strings.Join(similar, ", ") + "?"
	}
	return errors.New(errors.ErrConfig, fmt.Sprintf("Unknown command '%s'", name), suggestion)
}

package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/ui"
	"github.com/mistio/mist/internal/util"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect settings.yaml",
	Long: `Show or check the settings file.

The file is read from --settings (default ./settings.yaml). core_uri can be
overridden with --core-uri or MIST_CORE_URI without touching the file.

Examples:
  mist settings show
  mist settings check
  MIST_CORE_URI=https://staging.mist.io mist settings show`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsShow(cmd.OutOrStdout(), runtimeOpts)
	},
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and backend descriptors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return settingsCheck(cmd.OutOrStdout(), runtimeOpts)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

// loadSettings returns settings with the outer configuration layer applied.
// Use it for reads only: saving the result would persist the overrides.
func loadSettings(rt config.Runtime) (*config.Settings, error) {
	return config.LoadWithRuntime(rt)
}

// loadForUpdate returns the file contents as they are, ready to be saved back.
func loadForUpdate(rt config.Runtime) (*config.Settings, error) {
	return config.Load(rt.SettingsPath)
}

func saveSettings(rt config.Runtime, s *config.Settings) error {
	return config.Save(rt.SettingsPath, s)
}

type settingsView struct {
	Path       string   `json:"path"`
	CoreURI    string   `json:"core_uri"`
	JSBuild    bool     `json:"js_build"`
	JSLogLevel int      `json:"js_log_level"`
	Keypairs   []string `json:"keypairs"`
	Backends   int      `json:"backends"`
}

func settingsShow(w io.Writer, rt config.Runtime) error {
	s, err := loadSettings(rt)
	if err != nil {
		return err
	}

	view := settingsView{
		Path:       rt.SettingsPath,
		CoreURI:    s.CoreURI,
		JSBuild:    s.JSBuild,
		JSLogLevel: s.JSLogLevel,
		Keypairs:   keypairNames(s),
		Backends:   len(s.Backends),
	}
	if rt.JSON {
		return WriteJSONSuccess(w, view)
	}

	fmt.Fprint(w, ui.KeyValue([][2]string{
		{"settings", view.Path},
		{"core_uri", view.CoreURI},
		{"js_build", strconv.FormatBool(view.JSBuild)},
		{"js_log_level", strconv.Itoa(view.JSLogLevel)},
		{"keypairs", util.JoinOrNone(view.Keypairs)},
		{"backends", strconv.Itoa(view.Backends)},
	}))
	return nil
}

// checkSettings validates the file and each backend on its own, so one bad
// backend doesn't hide the others.
func checkSettings(s *config.Settings) []ui.CheckRow {
	var rows []ui.CheckRow

	general := *s
	general.Backends = nil
	if err := config.Validate(&general); err != nil {
		rows = append(rows, failRow("Settings", "settings.yaml", err))
	} else {
		rows = append(rows, ui.CheckRow{Status: "pass", Category: "Settings", Message: "core_uri " + s.CoreURI})
	}

	if len(s.Keypairs) == 0 {
		rows = append(rows, ui.CheckRow{
			Status:     "warn",
			Category:   "Keypairs",
			Message:    "No keypairs stored",
			Suggestion: "Add one with: mist keys add <name> --private ~/.ssh/id_rsa",
		})
	} else {
		for _, name := range keypairNames(s) {
			rows = append(rows, ui.CheckRow{Status: "pass", Category: "Keypairs", Message: name})
		}
	}

	if len(s.Backends) == 0 {
		rows = append(rows, ui.CheckRow{
			Status:     "warn",
			Category:   "Backends",
			Message:    "No backends configured",
			Suggestion: "Add one with: mist backends add",
		})
	}
	for i, b := range s.Backends {
		label := fmt.Sprintf("#%d %s (%s)", i, b.Label(), b.Provider)
		if err := backend.ValidateDescriptor(b); err != nil {
			rows = append(rows, failRow("Backends", label, err))
			continue
		}
		rows = append(rows, ui.CheckRow{Status: "pass", Category: "Backends", Message: label})
	}
	return rows
}

func failRow(category, message string, err error) ui.CheckRow {
	row := ui.CheckRow{Status: "fail", Category: category, Message: message, Suggestion: err.Error()}
	var mErr *errors.Error
	if stderrors.As(err, &mErr) {
		row.Suggestion = mErr.Message
		if mErr.Suggestion != "" {
			row.Suggestion += ". " + mErr.Suggestion
		}
	}
	return row
}

func settingsCheck(w io.Writer, rt config.Runtime) error {
	s, err := loadSettings(rt)
	if err != nil {
		return err
	}

	rows := checkSettings(s)
	failed := 0
	for _, r := range rows {
		if r.Status == "fail" {
			failed++
		}
	}

	if rt.JSON {
		env := JSONEnvelope{Success: failed == 0, Data: rows}
		if failed > 0 {
			env.Error = &JSONError{Code: ErrCodeConfigInvalid, Message: fmt.Sprintf("%d check(s) failed", failed)}
		}
		if err := writeJSONEnvelope(w, env); err != nil {
			return err
		}
		if failed > 0 {
			return errReported
		}
		return nil
	}

	fmt.Fprint(w, ui.RenderCheckTable(rows))
	if failed > 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s has %d problem(s)", rt.SettingsPath, failed),
			"Fix the entries marked above")
	}
	return nil
}

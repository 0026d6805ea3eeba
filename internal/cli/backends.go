package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/ui"
	"github.com/mistio/mist/internal/util"
)

// BackendAddOptions holds options for the backends add command.
type BackendAddOptions struct {
	Title       string
	Provider    string
	ID          string
	Secret      string
	Region      string
	Datacenter  string
	AuthURL     string
	AuthVersion string
	Verify      bool // connect and list machines before saving
}

var (
	backendAddOpts   BackendAddOptions
	backendRemoveYes bool
)

var backendsCmd = &cobra.Command{
	Use:     "backends",
	Aliases: []string{"backend"},
	Short:   "Manage configured cloud backends",
	Long: `List, add and remove the cloud accounts stored in settings.yaml.

Backends are addressed by index, in the order they appear in the file.

Examples:
  mist backends list
  mist backends add --provider ec2_eu_west --id AKIA... --secret ...
  mist backends add --provider openstack --id demo --secret pw --auth-url https://keystone:5000/v2.0
  mist backends remove 1`,
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured backends",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return backendsList(cmd.OutOrStdout(), runtimeOpts)
	},
}

var backendsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a backend",
	Long: `Add a cloud backend to settings.yaml.

Without --provider, and on a terminal, you're prompted for the details.
The descriptor is checked for the fields its provider needs before saving.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return backendsAdd(cmd.Context(), cmd.OutOrStdout(), runtimeOpts, backendAddOpts)
	},
}

var backendsRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBackendIndex(args[0])
		if err != nil {
			return err
		}
		return backendsRemove(cmd.OutOrStdout(), runtimeOpts, index, backendRemoveYes)
	},
}

func init() {
	f := backendsAddCmd.Flags()
	f.StringVar(&backendAddOpts.Title, "title", "", "friendly name shown in listings")
	f.StringVar(&backendAddOpts.Provider, "provider", "", "provider key, e.g. ec2_us_west, linode, openstack")
	f.StringVar(&backendAddOpts.ID, "id", "", "API user or access key (ignored by linode)")
	f.StringVar(&backendAddOpts.Secret, "secret", "", "API secret, password or token")
	f.StringVar(&backendAddOpts.Region, "region", "", "rackspace_first_gen region: us or uk")
	f.StringVar(&backendAddOpts.Datacenter, "datacenter", "", "rackspace datacenter, e.g. dfw, ord, lon")
	f.StringVar(&backendAddOpts.AuthURL, "auth-url", "", "openstack identity endpoint")
	f.StringVar(&backendAddOpts.AuthVersion, "auth-version", "", "openstack identity version (default "+backend.DefaultAuthVersion+")")
	f.BoolVar(&backendAddOpts.Verify, "verify", false, "connect and list machines before saving")

	backendsRemoveCmd.Flags().BoolVarP(&backendRemoveYes, "yes", "y", false, "don't ask for confirmation")

	backendsCmd.AddCommand(backendsListCmd)
	backendsCmd.AddCommand(backendsAddCmd)
	backendsCmd.AddCommand(backendsRemoveCmd)
	rootCmd.AddCommand(backendsCmd)
}

// backendView is a backend without its credentials.
type backendView struct {
	Index    int    `json:"index"`
	Title    string `json:"title"`
	Provider string `json:"provider"`
	Family   string `json:"family"`
	Location string `json:"location,omitempty"`
}

func viewBackend(i int, b config.Backend) backendView {
	family := "unknown"
	if prof, ok := backend.DefaultRegistry.Profile(backend.Provider(b.Provider)); ok {
		family = string(prof.Family)
	}
	location := b.Region
	if b.Datacenter != "" {
		location = b.Datacenter
	}
	if b.AuthURL != "" {
		location = b.AuthURL
	}
	return backendView{Index: i, Title: b.Label(), Provider: b.Provider, Family: family, Location: location}
}

func backendsList(w io.Writer, rt config.Runtime) error {
	s, err := loadSettings(rt)
	if err != nil {
		return err
	}

	views := make([]backendView, len(s.Backends))
	for i, b := range s.Backends {
		views[i] = viewBackend(i, b)
	}
	if rt.JSON {
		return WriteJSONSuccess(w, views)
	}

	if len(views) == 0 {
		fmt.Fprintln(w, "No backends configured.")
		fmt.Fprintln(w, "\nAdd one with: mist backends add")
		return nil
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		location := v.Location
		if location == "" {
			location = "-"
		}
		rows[i] = []string{strconv.Itoa(v.Index), v.Title, v.Provider, v.Family, location}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "#", Width: 3},
		{Title: "TITLE", Width: 10},
		{Title: "PROVIDER", Width: 10},
		{Title: "FAMILY", Width: 8},
		{Title: "LOCATION", Width: 10},
	}, rows))
	return nil
}

func (o BackendAddOptions) descriptor() config.Backend {
	return config.Backend{
		Title:       strings.TrimSpace(o.Title),
		Provider:    strings.TrimSpace(o.Provider),
		ID:          strings.TrimSpace(o.ID),
		Secret:      strings.TrimSpace(o.Secret),
		Region:      strings.TrimSpace(o.Region),
		Datacenter:  strings.TrimSpace(o.Datacenter),
		AuthURL:     strings.TrimSpace(o.AuthURL),
		AuthVersion: strings.TrimSpace(o.AuthVersion),
	}
}

func backendsAdd(ctx context.Context, w io.Writer, rt config.Runtime, opts BackendAddOptions) error {
	if opts.Provider == "" {
		if rt.JSON || !isInteractive() {
			return errors.New(errors.ErrConfig,
				"No provider given",
				"Pass --provider, e.g. --provider ec2_us_east. Run 'mist backends add --help' for all flags.")
		}
		if err := promptBackend(&opts); err != nil {
			return err
		}
	}

	b := opts.descriptor()
	if err := backend.ValidateDescriptor(b); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Backend '%s' is incomplete", b.Label()),
			"Run 'mist backends add --help' for the flags each provider needs")
	}

	s, err := loadForUpdate(rt)
	if err != nil {
		return err
	}

	machines := -1
	if opts.Verify {
		conn, err := connectBackend(ctx, b)
		if err != nil {
			return err
		}
		list, err := conn.ListMachines(ctx)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrBackend,
				fmt.Sprintf("Couldn't list machines on '%s'", b.Label()),
				"Check the credentials, then try again")
		}
		machines = len(list)
	}

	index := s.AddBackend(b)
	if err := saveSettings(rt, s); err != nil {
		return err
	}

	if rt.JSON {
		return WriteJSONSuccess(w, viewBackend(index, b))
	}
	fmt.Fprintf(w, "%s Added backend #%d '%s'\n", ui.SuccessStyle.Render(ui.SymbolSuccess), index, b.Label())
	if machines >= 0 {
		fmt.Fprintf(w, "  %s\n", ui.MutedStyle.Render(fmt.Sprintf("%d %s visible", machines, util.Pluralize(machines, "machine", "machines"))))
	}
	return nil
}

// promptBackend fills opts interactively. Only the fields the chosen
// provider needs are asked for.
func promptBackend(opts *BackendAddOptions) error {
	providers := backend.DefaultRegistry.Providers()
	options := make([]huh.Option[string], len(providers))
	for i, p := range providers {
		options[i] = huh.NewOption(string(p), string(p))
	}

	family := func() backend.Family {
		prof, _ := backend.DefaultRegistry.Profile(backend.Provider(opts.Provider))
		return prof.Family
	}
	required := func(name string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", name)
			}
			return nil
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Options(options...).
				Value(&opts.Provider),
			huh.NewInput().
				Title("Title").
				Description("A friendly name for this backend (optional)").
				Value(&opts.Title),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API user or access key").
				Value(&opts.ID).
				Validate(required("id")),
		).WithHideFunc(func() bool { return family() == backend.FamilyLinode }),
		huh.NewGroup(
			huh.NewInput().
				Title("Secret").
				Description("API secret, password or token").
				EchoMode(huh.EchoModePassword).
				Value(&opts.Secret).
				Validate(required("secret")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Options(huh.NewOption("us", "us"), huh.NewOption("uk", "uk")).
				Value(&opts.Region),
		).WithHideFunc(func() bool { return family() != backend.FamilyRackspaceLegacy }),
		huh.NewGroup(
			huh.NewInput().
				Title("Datacenter").
				Placeholder("dfw, ord, iad, lon, syd, hkg").
				Value(&opts.Datacenter).
				Validate(required("datacenter")),
		).WithHideFunc(func() bool { return family() != backend.FamilyRackspace }),
		huh.NewGroup(
			huh.NewInput().
				Title("Identity URL").
				Placeholder("https://keystone.example.com:5000/v2.0").
				Value(&opts.AuthURL).
				Validate(required("auth url")),
			huh.NewInput().
				Title("Identity version").
				Placeholder(backend.DefaultAuthVersion).
				Value(&opts.AuthVersion),
		).WithHideFunc(func() bool { return family() != backend.FamilyOpenStack }),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility or pass --provider and the credential flags")
	}
	return nil
}

func backendsRemove(w io.Writer, rt config.Runtime, index int, yes bool) error {
	s, err := loadForUpdate(rt)
	if err != nil {
		return err
	}
	b, err := s.Backend(index)
	if err != nil {
		return err
	}

	if !yes && !rt.JSON && isInteractive() {
		var confirm bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Remove backend #%d '%s'?", index, b.Label())).
					Description("Later backends move up one index").
					Value(&confirm),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't get your input",
				"Try again or pass --yes")
		}
		if !confirm {
			fmt.Fprintln(w, "Cancelled.")
			return nil
		}
	}

	if err := s.RemoveBackend(index); err != nil {
		return err
	}
	if err := saveSettings(rt, s); err != nil {
		return err
	}

	if rt.JSON {
		return WriteJSONSuccess(w, viewBackend(index, b))
	}
	fmt.Fprintf(w, "%s Removed backend #%d '%s'\n", ui.SuccessStyle.Render(ui.SymbolSuccess), index, b.Label())
	return nil
}

// openBackend loads settings and connects to the backend at index.
func openBackend(ctx context.Context, rt config.Runtime, index int) (*config.Settings, config.Backend, backend.Connection, error) {
	s, err := loadSettings(rt)
	if err != nil {
		return nil, config.Backend{}, nil, err
	}
	b, err := s.Backend(index)
	if err != nil {
		return nil, config.Backend{}, nil, err
	}
	conn, err := connectBackend(ctx, b)
	if err != nil {
		return nil, config.Backend{}, nil, err
	}
	return s, b, conn, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/provision"
	"github.com/mistio/mist/internal/ui"
)

var (
	keysAddPublic  string
	keysAddPrivate string
)

var keysCmd = &cobra.Command{
	Use:     "keys",
	Aliases: []string{"keypairs"},
	Short:   "Manage stored SSH keypairs",
	Long: `List and add the SSH keypairs stored in settings.yaml, and import
their public halves into a backend.

Examples:
  mist keys list
  mist keys add default --private ~/.ssh/id_rsa
  mist keys import 0 default`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored keypairs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysList(cmd.OutOrStdout(), runtimeOpts)
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Store a keypair",
	Long: `Store a keypair under name. The public key is derived from the
private key when --public is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysAdd(cmd.OutOrStdout(), runtimeOpts, args[0], keysAddPublic, keysAddPrivate)
	},
}

var keysImportCmd = &cobra.Command{
	Use:   "import <backend-index> <keypair>",
	Short: "Import a keypair's public key into a backend",
	Long: `Import the public key of a stored keypair into the backend under
the keypair's name. Importing a key that already exists succeeds.

Only EC2 backends support key import.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseBackendIndex(args[0])
		if err != nil {
			return err
		}
		return keysImport(cmd.Context(), cmd.OutOrStdout(), runtimeOpts, index, args[1])
	},
}

func init() {
	keysAddCmd.Flags().StringVar(&keysAddPublic, "public", "", "path to the public key (authorized_keys format)")
	keysAddCmd.Flags().StringVar(&keysAddPrivate, "private", "", "path to the private key (PEM or OpenSSH format)")

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysImportCmd)
	rootCmd.AddCommand(keysCmd)
}

func keypairNames(s *config.Settings) []string {
	names := make([]string, 0, len(s.Keypairs))
	for name := range s.Keypairs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type keypairView struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Type        string `json:"type,omitempty"`
	HasPrivate  bool   `json:"has_private"`
}

func viewKeypair(name string, kp config.Keypair) keypairView {
	v := keypairView{Name: name, HasPrivate: strings.TrimSpace(kp.Private) != ""}
	if pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(kp.Public)); err == nil {
		v.Fingerprint = ssh.FingerprintSHA256(pub)
		v.Type = pub.Type()
	}
	return v
}

func keysList(w io.Writer, rt config.Runtime) error {
	s, err := loadSettings(rt)
	if err != nil {
		return err
	}

	names := keypairNames(s)
	views := make([]keypairView, len(names))
	for i, name := range names {
		views[i] = viewKeypair(name, s.Keypairs[name])
	}
	if rt.JSON {
		return WriteJSONSuccess(w, views)
	}

	if len(views) == 0 {
		fmt.Fprintln(w, "No keypairs stored.")
		fmt.Fprintln(w, "\nAdd one with: mist keys add <name> --private ~/.ssh/id_rsa")
		return nil
	}

	rows := make([][]string, len(views))
	for i, v := range views {
		fp := v.Fingerprint
		if fp == "" {
			fp = "-"
		}
		private := "no"
		if v.HasPrivate {
			private = "yes"
		}
		rows[i] = []string{v.Name, v.Type, fp, private}
	}
	fmt.Fprintln(w, ui.RenderSimpleTable([]ui.TableColumn{
		{Title: "NAME", Width: 10},
		{Title: "TYPE", Width: 8},
		{Title: "FINGERPRINT", Width: 20},
		{Title: "PRIVATE", Width: 7},
	}, rows))
	return nil
}

// readKeypair loads key material from disk. A missing public key is derived
// from the private key.
func readKeypair(publicPath, privatePath string) (config.Keypair, error) {
	var kp config.Keypair

	if privatePath != "" {
		data, err := os.ReadFile(privatePath)
		if err != nil {
			return kp, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't read private key "+privatePath,
				"Check the path and permissions")
		}
		kp.Private = string(data)
	}

	if publicPath != "" {
		data, err := os.ReadFile(publicPath)
		if err != nil {
			return kp, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't read public key "+publicPath,
				"Check the path and permissions")
		}
		if _, _, _, _, err := ssh.ParseAuthorizedKey(data); err != nil {
			return kp, errors.WrapWithCode(err, errors.ErrConfig,
				publicPath+" is not an SSH public key",
				"Pass the .pub file, in authorized_keys format")
		}
		kp.Public = string(data)
	} else if kp.Private != "" {
		signer, err := ssh.ParsePrivateKey([]byte(kp.Private))
		if err != nil {
			return kp, errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't derive the public key from "+privatePath,
				"Pass --public explicitly; passphrase protected keys can't be used")
		}
		kp.Public = string(ssh.MarshalAuthorizedKey(signer.PublicKey()))
	}

	if kp.Public == "" {
		return kp, errors.New(errors.ErrConfig,
			"No key material given",
			"Pass --private, --public or both")
	}
	return kp, nil
}

func keysAdd(w io.Writer, rt config.Runtime, name, publicPath, privatePath string) error {
	kp, err := readKeypair(publicPath, privatePath)
	if err != nil {
		return err
	}

	s, err := loadForUpdate(rt)
	if err != nil {
		return err
	}
	if err := s.AddKeypair(name, kp.Public, kp.Private); err != nil {
		return err
	}
	if err := saveSettings(rt, s); err != nil {
		return err
	}

	view := viewKeypair(name, kp)
	if rt.JSON {
		return WriteJSONSuccess(w, view)
	}
	fmt.Fprintf(w, "%s Stored keypair '%s' %s\n", ui.SuccessStyle.Render(ui.SymbolSuccess), name,
		ui.MutedStyle.Render(view.Fingerprint))
	return nil
}

func keysImport(ctx context.Context, w io.Writer, rt config.Runtime, index int, name string) error {
	s, b, conn, err := openBackend(ctx, rt, index)
	if err != nil {
		return err
	}
	kp, err := s.Keypair(name)
	if err != nil {
		return err
	}

	if !provision.ImportKey(ctx, conn, kp.Public, name) {
		return errors.New(errors.ErrProvision,
			fmt.Sprintf("Couldn't import keypair '%s' into '%s'", name, b.Label()),
			"Key import needs an EC2 backend; run with --debug for the provider's answer")
	}

	if rt.JSON {
		return WriteJSONSuccess(w, map[string]interface{}{"backend": index, "keypair": name, "imported": true})
	}
	fmt.Fprintf(w, "%s Keypair '%s' is available on '%s'\n", ui.SuccessStyle.Render(ui.SymbolSuccess), name, b.Label())
	return nil
}

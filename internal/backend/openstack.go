package backend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-goose/goose/v5/client"
	"github.com/go-goose/goose/v5/identity"
	"github.com/go-goose/goose/v5/nova"

	"github.com/mistio/mist/internal/config"
)

// DefaultAuthVersion is the OpenStack identity version used when a backend
// does not set auth_version.
const DefaultAuthVersion = "2.0"

const (
	rackspaceIdentityURL = "https://identity.api.rackspacecloud.com/v2.0/"
	rackspaceUSAuthURL   = "https://auth.api.rackspacecloud.com/v1.0"
	rackspaceUKAuthURL   = "https://lon.auth.api.rackspacecloud.com/v1.0"
)

// novaAPI is the subset of the compute client used by novaConnection.
type novaAPI interface {
	ListServersDetail(filter *nova.Filter) ([]nova.ServerDetail, error)
	SetServerMetadata(serverID string, metadata map[string]string) error
}

// newNovaAPI builds an unauthenticated compute client. goose authenticates
// lazily on the first request.
func newNovaAPI(creds identity.Credentials, mode identity.AuthMode) novaAPI {
	cl := client.NewClient(&creds, mode, nil)
	return nova.New(cl)
}

// novaDriver serves every goose backed family: OpenStack and both
// generations of Rackspace. They differ in how credentials are built.
type novaDriver struct {
	provider    Provider
	profile     Profile
	credentials func(b config.Backend) (identity.Credentials, identity.AuthMode, error)
	validate    func(b config.Backend) error
	newAPI      func(creds identity.Credentials, mode identity.AuthMode) novaAPI
}

func newOpenStackDriver() *novaDriver {
	return &novaDriver{
		provider:    OpenStack,
		profile:     openstackProfile,
		credentials: openstackCredentials,
		validate: func(b config.Backend) error {
			return requireFields(string(OpenStack), [2]string{"id", b.ID}, [2]string{"secret", b.Secret})
		},
		newAPI: newNovaAPI,
	}
}

func newRackspaceDriver() *novaDriver {
	return &novaDriver{
		provider:    Rackspace,
		profile:     rackspaceProfile,
		credentials: rackspaceCredentials,
		validate: func(b config.Backend) error {
			return requireFields(string(Rackspace),
				[2]string{"id", b.ID}, [2]string{"secret", b.Secret}, [2]string{"datacenter", b.Datacenter})
		},
		newAPI: newNovaAPI,
	}
}

func newRackspaceFirstGenDriver() *novaDriver {
	return &novaDriver{
		provider:    RackspaceFirstGen,
		profile:     rackspaceLegacyProfile,
		credentials: rackspaceFirstGenCredentials,
		validate: func(b config.Backend) error {
			return requireFields(string(RackspaceFirstGen),
				[2]string{"id", b.ID}, [2]string{"secret", b.Secret}, [2]string{"region", b.Region})
		},
		newAPI: newNovaAPI,
	}
}

// openstackCredentials picks the identity API from auth_version.
// 1.x uses legacy auth, 2.x uses v2 and 3.x uses v3.
func openstackCredentials(b config.Backend) (identity.Credentials, identity.AuthMode, error) {
	version := b.AuthVersion
	if version == "" {
		version = DefaultAuthVersion
	}
	creds := identity.Credentials{
		User:    b.ID,
		Secrets: b.Secret,
		URL:     b.AuthURL,
	}

	switch {
	case strings.HasPrefix(version, "1"):
		return creds, identity.AuthLegacy, nil
	case strings.HasPrefix(version, "2"):
		return creds, identity.AuthUserPass, nil
	case strings.HasPrefix(version, "3"):
		creds.Version = 3
		return creds, identity.AuthUserPassV3, nil
	default:
		return identity.Credentials{}, 0, fmt.Errorf("unsupported auth_version %q", b.AuthVersion)
	}
}

func rackspaceCredentials(b config.Backend) (identity.Credentials, identity.AuthMode, error) {
	return identity.Credentials{
		User:    b.ID,
		Secrets: b.Secret,
		URL:     rackspaceIdentityURL,
		Region:  strings.ToUpper(b.Datacenter),
	}, identity.AuthUserPass, nil
}

// rackspaceFirstGenCredentials targets the v1.0 auth endpoints. The first gen
// servers API predates Nova: goose parses its /servers/detail only where the
// two overlap, so listing may fail or lose addresses on accounts still
// running first gen servers.
func rackspaceFirstGenCredentials(b config.Backend) (identity.Credentials, identity.AuthMode, error) {
	var url string
	switch strings.ToLower(b.Region) {
	case "us":
		url = rackspaceUSAuthURL
	case "uk":
		url = rackspaceUKAuthURL
	default:
		return identity.Credentials{}, 0, fmt.Errorf("unknown rackspace region %q (want us or uk)", b.Region)
	}
	return identity.Credentials{
		User:    b.ID,
		Secrets: b.Secret,
		URL:     url,
	}, identity.AuthLegacy, nil
}

func (d *novaDriver) Profile() Profile { return d.profile }

func (d *novaDriver) Validate(b config.Backend) error {
	if err := d.validate(b); err != nil {
		return err
	}
	_, _, err := d.credentials(b)
	return err
}

func (d *novaDriver) Open(_ context.Context, b config.Backend) (Connection, error) {
	creds, mode, err := d.credentials(b)
	if err != nil {
		return nil, err
	}
	return &novaConnection{
		provider: d.provider,
		tags:     d.profile.SupportsTags,
		api:      d.newAPI(creds, mode),
	}, nil
}

type novaConnection struct {
	provider Provider
	tags     bool
	api      novaAPI
}

func (c *novaConnection) Type() Provider { return c.provider }

func (c *novaConnection) ListMachines(ctx context.Context) ([]Machine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	servers, err := c.api.ListServersDetail(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list servers: %w", err)
	}

	machines := make([]Machine, 0, len(servers))
	for _, s := range servers {
		machines = append(machines, novaMachine(s))
	}
	return machines, nil
}

func novaMachine(s nova.ServerDetail) Machine {
	m := Machine{
		ID:         s.Id,
		Name:       s.Name,
		State:      novaState(s.Status),
		PublicIPs:  []string{},
		PrivateIPs: []string{},
		Tags:       make(map[string]string, len(s.Metadata)),
	}
	for k, v := range s.Metadata {
		m.Tags[k] = v
	}

	// Network names are arbitrary; "public" is the convention on Rackspace
	// and devstack. Everything else counts as private.
	networks := make([]string, 0, len(s.Addresses))
	for name := range s.Addresses {
		networks = append(networks, name)
	}
	sort.Strings(networks)
	for _, name := range networks {
		for _, addr := range s.Addresses[name] {
			if name == "public" || addr.Type == "floating" {
				m.PublicIPs = append(m.PublicIPs, addr.Address)
			} else {
				m.PrivateIPs = append(m.PrivateIPs, addr.Address)
			}
		}
	}
	return m
}

func novaState(status string) MachineState {
	switch status {
	case nova.StatusActive:
		return StateRunning
	case nova.StatusBuild, nova.StatusBuildSpawning, nova.StatusRebuild, nova.StatusPassword:
		return StatePending
	case nova.StatusReboot, nova.StatusHardReboot:
		return StateRebooting
	case nova.StatusShutoff, nova.StatusSuspended:
		return StateStopped
	case nova.StatusDeleted:
		return StateTerminated
	default:
		return StateUnknown
	}
}

func (c *novaConnection) ImportKeyPair(context.Context, string, string) error {
	return ErrNotSupported
}

func (c *novaConnection) CreateSecurityGroup(context.Context, string, string) error {
	return ErrNotSupported
}

func (c *novaConnection) AuthorizeSecurityGroupPermissive(context.Context, string) error {
	return ErrNotSupported
}

// CreateTags stores tags as server metadata.
func (c *novaConnection) CreateTags(ctx context.Context, machineID string, tags map[string]string) error {
	if !c.tags {
		return ErrNotSupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.api.SetServerMetadata(machineID, tags); err != nil {
		return fmt.Errorf("failed to set metadata on %s: %w", machineID, err)
	}
	return nil
}

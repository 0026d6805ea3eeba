package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/linode/linodego"
	"golang.org/x/oauth2"

	"github.com/mistio/mist/internal/config"
)

// linodeAPI is the subset of the Linode client used by linodeConnection.
type linodeAPI interface {
	ListInstances(ctx context.Context, opts *linodego.ListOptions) ([]linodego.Instance, error)
}

type linodeDriver struct {
	newAPI func(token string) linodeAPI
}

func newLinodeDriver() *linodeDriver {
	return &linodeDriver{newAPI: newLinodeAPI}
}

// newLinodeAPI authenticates with the personal access token alone.
func newLinodeAPI(token string) linodeAPI {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := &http.Client{Transport: &oauth2.Transport{Source: src}}
	client := linodego.NewClient(hc)
	return &client
}

func (d *linodeDriver) Profile() Profile { return linodeProfile }

// Validate only needs the secret; Linode has no separate API user.
func (d *linodeDriver) Validate(b config.Backend) error {
	return requireFields(string(Linode), [2]string{"secret", b.Secret})
}

func (d *linodeDriver) Open(_ context.Context, b config.Backend) (Connection, error) {
	return &linodeConnection{api: d.newAPI(b.Secret)}, nil
}

type linodeConnection struct {
	api linodeAPI
}

func (c *linodeConnection) Type() Provider { return Linode }

func (c *linodeConnection) ListMachines(ctx context.Context) ([]Machine, error) {
	instances, err := c.api.ListInstances(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list linodes: %w", err)
	}

	machines := make([]Machine, 0, len(instances))
	for _, inst := range instances {
		m := Machine{
			ID:         strconv.Itoa(inst.ID),
			Name:       inst.Label,
			State:      linodeState(inst.Status),
			PublicIPs:  []string{},
			PrivateIPs: []string{},
		}
		for _, ip := range inst.IPv4 {
			if ip == nil {
				continue
			}
			if ip.IsPrivate() {
				m.PrivateIPs = append(m.PrivateIPs, ip.String())
			} else {
				m.PublicIPs = append(m.PublicIPs, ip.String())
			}
		}
		machines = append(machines, m)
	}
	return machines, nil
}

func linodeState(status linodego.InstanceStatus) MachineState {
	switch status {
	case linodego.InstanceRunning:
		return StateRunning
	case linodego.InstanceRebooting:
		return StateRebooting
	case linodego.InstanceBooting, linodego.InstanceProvisioning, linodego.InstanceMigrating,
		linodego.InstanceRebuilding, linodego.InstanceCloning, linodego.InstanceRestoring,
		linodego.InstanceResizing:
		return StatePending
	case linodego.InstanceDeleting:
		return StateTerminated
	default:
		return StateUnknown
	}
}

func (c *linodeConnection) ImportKeyPair(context.Context, string, string) error {
	return ErrNotSupported
}

func (c *linodeConnection) CreateSecurityGroup(context.Context, string, string) error {
	return ErrNotSupported
}

func (c *linodeConnection) AuthorizeSecurityGroupPermissive(context.Context, string) error {
	return ErrNotSupported
}

func (c *linodeConnection) CreateTags(context.Context, string, map[string]string) error {
	return ErrNotSupported
}

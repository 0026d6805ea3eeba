package backend

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/logger"
	"github.com/mistio/mist/internal/util"
)

// ErrUnknownProvider is wrapped by lookup errors for unregistered providers.
var ErrUnknownProvider = stderrors.New("no driver registered for provider")

var log = logger.NewEnvLogger("[backend]")

// Driver opens connections for one provider.
type Driver interface {
	// Profile describes the provider family's capabilities.
	Profile() Profile

	// Validate checks the descriptor carries the fields Open needs.
	Validate(b config.Backend) error

	// Open builds a connection from the descriptor.
	Open(ctx context.Context, b config.Backend) (Connection, error)
}

// Registry maps providers to drivers.
type Registry struct {
	mu      sync.RWMutex
	drivers map[Provider]Driver
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{drivers: make(map[Provider]Driver)}
}

// Register adds or replaces the driver for p.
func (r *Registry) Register(p Provider, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[p] = d
}

// Lookup returns the driver for p or a LOOKUP error.
func (r *Registry) Lookup(p Provider) (Driver, error) {
	r.mu.RLock()
	d, ok := r.drivers[p]
	r.mu.RUnlock()
	if !ok {
		names := r.providerNames()
		suggestion := "Supported providers: " + strings.Join(names, ", ")
		if similar := util.SuggestSimilar(string(p), names, 3); len(similar) > 0 {
			suggestion = "Did you mean: " + strings.Join(similar, ", ") + "?\n  " + suggestion
		}
		return nil, errors.WrapWithCode(
			fmt.Errorf("%w: %q", ErrUnknownProvider, string(p)),
			errors.ErrLookup,
			fmt.Sprintf("Unknown provider '%s'", p),
			suggestion)
	}
	return d, nil
}

// Profile returns the capability profile for p.
func (r *Registry) Profile(p Provider) (Profile, bool) {
	d, err := r.Lookup(p)
	if err != nil {
		return Profile{}, false
	}
	return d.Profile(), true
}

// Providers returns the registered providers sorted by name.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.drivers))
	for p := range r.drivers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) providerNames() []string {
	providers := r.Providers()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = string(p)
	}
	return names
}

// Validate checks b against its provider's requirements.
func (r *Registry) Validate(b config.Backend) error {
	d, err := r.Lookup(Provider(b.Provider))
	if err != nil {
		return err
	}
	return d.Validate(b)
}

// Connect opens a connection for the descriptor.
// There is no retry; callers surface failures to the user.
func (r *Registry) Connect(ctx context.Context, b config.Backend) (Connection, error) {
	d, err := r.Lookup(Provider(b.Provider))
	if err != nil {
		return nil, err
	}
	if err := d.Validate(b); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("Backend '%s' is missing credentials", b.Label()),
			"Check the backend entry in settings.yaml")
	}

	log.Debug("connecting to %s", b.Provider)
	conn, err := d.Open(ctx, b)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrBackend,
			fmt.Sprintf("Couldn't connect to backend '%s'", b.Label()),
			"Check the credentials and that the provider API is reachable")
	}
	return conn, nil
}

// DefaultRegistry holds the built-in drivers.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range EC2Providers() {
		r.Register(p, newEC2Driver(p))
	}
	r.Register(OpenStack, newOpenStackDriver())
	r.Register(Rackspace, newRackspaceDriver())
	r.Register(RackspaceFirstGen, newRackspaceFirstGenDriver())
	r.Register(Linode, newLinodeDriver())
	return r
}

// Connect opens a connection using the built-in drivers.
func Connect(ctx context.Context, b config.Backend) (Connection, error) {
	return DefaultRegistry.Connect(ctx, b)
}

// ProfileOf returns the built-in profile for p. Unregistered providers get
// an empty profile, which supports nothing beyond the baseline.
func ProfileOf(p Provider) Profile {
	prof, _ := DefaultRegistry.Profile(p)
	return prof
}

// ValidateDescriptor checks b against the built-in drivers.
// It matches config.WithBackendValidator.
func ValidateDescriptor(b config.Backend) error {
	return DefaultRegistry.Validate(b)
}

// requireFields reports the first empty field among the named values.
func requireFields(provider string, fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s backends need %s", provider, strings.Join(missing, ", "))
	}
	return nil
}

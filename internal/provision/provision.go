// Package provision imports SSH keys and creates security groups on
// backends that support them. Both operations are idempotent: a resource
// that already exists counts as success.
package provision

import (
	"context"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/logger"
	"github.com/mistio/mist/internal/util"
)

// GroupInfo names a security group to create.
type GroupInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Provisioner runs provisioning calls against connections.
type Provisioner struct {
	log      logger.Logger
	profiles func(backend.Provider) backend.Profile
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger. Defaults to a "[provision]" env logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Provisioner) { p.log = l }
}

// WithProfiles overrides how a connection's capabilities are looked up.
func WithProfiles(fn func(backend.Provider) backend.Profile) Option {
	return func(p *Provisioner) { p.profiles = fn }
}

// New returns a Provisioner.
func New(opts ...Option) *Provisioner {
	p := &Provisioner{
		log:      logger.NewEnvLogger("[provision]"),
		profiles: backend.ProfileOf,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ImportKey registers publicKey under name. The connection only accepts a
// file path, so the key is staged in a temporary file that is removed
// before returning.
func (p *Provisioner) ImportKey(ctx context.Context, conn backend.Connection, publicKey, name string) bool {
	if !p.profiles(conn.Type()).SupportsKeyImport {
		p.log.Warn("%s does not support key importing", conn.Type())
		return false
	}

	err := util.WithTempFile("mist-pubkey-*", []byte(publicKey), func(path string) error {
		return conn.ImportKeyPair(ctx, name, path)
	})
	switch {
	case err == nil:
		p.log.Info("imported key %s", name)
		return true
	case backend.IsDuplicate(err):
		p.log.Warn("key %s already exists, not importing anything", name)
		return true
	default:
		p.log.Error("failed to import key %s: %v", name, err)
		return false
	}
}

// CreateSecurityGroup creates the group and opens it to all traffic.
// Both name and description are required.
func (p *Provisioner) CreateSecurityGroup(ctx context.Context, conn backend.Connection, info GroupInfo) bool {
	if info.Name == "" || info.Description == "" || !p.profiles(conn.Type()).SupportsSecurityGroups {
		p.log.Warn("%s does not support security group creation", conn.Type())
		return false
	}

	err := conn.CreateSecurityGroup(ctx, info.Name, info.Description)
	if err == nil {
		err = conn.AuthorizeSecurityGroupPermissive(ctx, info.Name)
	}
	switch {
	case err == nil:
		p.log.Info("created security group %s", info.Name)
		return true
	case backend.IsDuplicate(err):
		p.log.Warn("security group %s already exists, not doing anything", info.Name)
		return true
	default:
		p.log.Error("failed to create and configure security group %s: %v", info.Name, err)
		return false
	}
}

var defaultProvisioner = New()

// ImportKey uses the package default Provisioner.
func ImportKey(ctx context.Context, conn backend.Connection, publicKey, name string) bool {
	return defaultProvisioner.ImportKey(ctx, conn, publicKey, name)
}

// CreateSecurityGroup uses the package default Provisioner.
func CreateSecurityGroup(ctx context.Context, conn backend.Connection, info GroupInfo) bool {
	return defaultProvisioner.CreateSecurityGroup(ctx, conn, info)
}

package backend

import (
	"context"
	stderrors "errors"
)

// ErrNotSupported is returned by connection operations the provider lacks.
var ErrNotSupported = stderrors.New("operation not supported by this provider")

// MachineState is the lifecycle state reported by a provider.
type MachineState string

const (
	StateRunning    MachineState = "running"
	StateRebooting  MachineState = "rebooting"
	StatePending    MachineState = "pending"
	StateStopped    MachineState = "stopped"
	StateTerminated MachineState = "terminated"
	StateUnknown    MachineState = "unknown"
)

// MachineStates lists every state in a stable order.
func MachineStates() []MachineState {
	return []MachineState{
		StateRunning, StateRebooting, StatePending,
		StateStopped, StateTerminated, StateUnknown,
	}
}

// Machine is a compute node as listed by a connection.
type Machine struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	State      MachineState      `json:"state"`
	PublicIPs  []string          `json:"public_ips"`
	PrivateIPs []string          `json:"private_ips"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// Connection is a live handle to one backend account.
// It is owned by whoever opened it and never persisted.
type Connection interface {
	// Type returns the exact provider the connection was opened for,
	// including EC2 regional variants.
	Type() Provider

	ListMachines(ctx context.Context) ([]Machine, error)

	// ImportKeyPair registers the public key stored at keyFile under name.
	ImportKeyPair(ctx context.Context, name, keyFile string) error

	CreateSecurityGroup(ctx context.Context, name, description string) error

	// AuthorizeSecurityGroupPermissive opens every port and protocol to the world.
	AuthorizeSecurityGroupPermissive(ctx context.Context, name string) error

	CreateTags(ctx context.Context, machineID string, tags map[string]string) error
}

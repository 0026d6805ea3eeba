// Package testing provides an in-memory backend.Connection for tests.
package testing

import (
	"context"
	"os"
	"sync"

	"github.com/mistio/mist/internal/backend"
)

// TagCall records one CreateTags invocation.
type TagCall struct {
	MachineID string
	Tags      map[string]string
}

// FakeConnection is a backend.Connection backed by in-memory state.
// Key pairs and security groups behave like EC2: creating one that already
// exists fails with a duplicate error.
type FakeConnection struct {
	mu sync.Mutex

	Provider backend.Provider
	Machines []backend.Machine

	KeyPairs       map[string]string // name -> public key
	SecurityGroups map[string]string // name -> description
	Authorized     map[string]int    // group -> permissive calls
	KeyFiles       []string
	TagCalls       []TagCall

	// Err, when set, is returned by every mutating call.
	Err error
	// TagErr, when set, is returned by CreateTags.
	TagErr error
}

// NewFakeConnection returns an empty fake for provider p.
func NewFakeConnection(p backend.Provider) *FakeConnection {
	return &FakeConnection{
		Provider:       p,
		KeyPairs:       make(map[string]string),
		SecurityGroups: make(map[string]string),
		Authorized:     make(map[string]int),
	}
}

// duplicateError mimics the provider's "already exists" failure.
type duplicateError struct{ what string }

func (e duplicateError) Error() string { return e.what + ".Duplicate: already exists" }

func (f *FakeConnection) Type() backend.Provider { return f.Provider }

func (f *FakeConnection) ListMachines(ctx context.Context) ([]backend.Machine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]backend.Machine, len(f.Machines))
	copy(out, f.Machines)
	return out, nil
}

// ImportKeyPair stores the contents of keyFile under name. KeyFiles keeps
// the paths it was handed so tests can check they were cleaned up.
func (f *FakeConnection) ImportKeyPair(_ context.Context, name, keyFile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeyFiles = append(f.KeyFiles, keyFile)
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.KeyPairs[name]; ok {
		return duplicateError{what: "InvalidKeyPair"}
	}
	material, err := os.ReadFile(keyFile)
	if err != nil {
		return err
	}
	f.KeyPairs[name] = string(material)
	return nil
}

func (f *FakeConnection) CreateSecurityGroup(_ context.Context, name, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.SecurityGroups[name]; ok {
		return duplicateError{what: "InvalidGroup"}
	}
	f.SecurityGroups[name] = description
	return nil
}

func (f *FakeConnection) AuthorizeSecurityGroupPermissive(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Authorized[name]++
	return nil
}

func (f *FakeConnection) CreateTags(_ context.Context, machineID string, tags map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TagErr != nil {
		return f.TagErr
	}
	f.TagCalls = append(f.TagCalls, TagCall{MachineID: machineID, Tags: tags})
	return nil
}

// Package testing provides a scripted sshutil.Runner for tests.
package testing

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/mistio/mist/pkg/sshutil"
)

// CommandResponse defines a canned response for one Run call.
type CommandResponse struct {
	Output   string
	ExitCode int
	Error    error
	// Block, when set, makes Run wait for it to close or for ctx to end.
	Block chan struct{}
}

// Call records one Run invocation.
type Call struct {
	Config  sshutil.SessionConfig
	Command string
	// KeyMaterial is what KeyFile held at call time.
	KeyMaterial string
}

// MockRunner replays responses in order and records every call.
// Once responses run out, Run returns ErrNoResponse.
type MockRunner struct {
	mu        sync.Mutex
	responses []CommandResponse
	calls     []Call
}

// ErrNoResponse is returned when the runner has no scripted response left.
var ErrNoResponse = errors.New("mock runner: no scripted response")

// NewMockRunner returns a runner that answers with responses in order.
func NewMockRunner(responses ...CommandResponse) *MockRunner {
	return &MockRunner{responses: responses}
}

// Run implements sshutil.Runner.
func (m *MockRunner) Run(ctx context.Context, cfg sshutil.SessionConfig, cmd string) (sshutil.Result, error) {
	call := Call{Config: cfg, Command: cmd}
	if data, err := os.ReadFile(cfg.KeyFile); err == nil {
		call.KeyMaterial = string(data)
	}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return sshutil.Result{ExitCode: -1}, ErrNoResponse
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if resp.Block != nil {
		select {
		case <-resp.Block:
		case <-ctx.Done():
			return sshutil.Result{ExitCode: -1}, ctx.Err()
		}
	}

	return sshutil.Result{Output: []byte(resp.Output), ExitCode: resp.ExitCode}, resp.Error
}

// Calls returns a copy of the recorded calls.
func (m *MockRunner) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

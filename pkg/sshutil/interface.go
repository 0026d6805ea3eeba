package sshutil

import (
	"context"
	"time"
)

// DefaultUser is used when a SessionConfig names no user.
const DefaultUser = "root"

// DefaultTimeout bounds the TCP connect and SSH handshake.
const DefaultTimeout = 10 * time.Second

// SessionConfig describes one remote command execution. It is passed by
// value; nothing about a session is kept in package state, so concurrent
// runs never see each other's settings.
type SessionConfig struct {
	// Host is a hostname, IP, host:port or (with UseSSHConfig) an alias.
	Host string

	// User defaults to DefaultUser.
	User string

	// KeyFile is the only private key offered. The SSH agent and the
	// default ~/.ssh keys are never consulted.
	KeyFile string

	Timeout time.Duration

	// UseSSHConfig resolves HostName, Port and User from SSHConfigPath
	// (default ~/.ssh/config). An explicit User still wins.
	UseSSHConfig  bool
	SSHConfigPath string

	// KnownHostsPath enables strict host key checking against that file.
	// Empty accepts any host key, since machines are usually brand new.
	KnownHostsPath string

	// CombineOutput merges stderr into the returned output.
	CombineOutput bool

	// WarnOnly returns the output of a command that exits non-zero instead
	// of an *ExitError.
	WarnOnly bool
}

func (c SessionConfig) user() string {
	if c.User != "" {
		return c.User
	}
	return DefaultUser
}

func (c SessionConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// Result is the outcome of a command that ran.
type Result struct {
	Output   []byte
	ExitCode int
}

// Runner executes a single command on a remote host.
// The real implementation is DialRunner; tests use sshutil/testing.
type Runner interface {
	Run(ctx context.Context, cfg SessionConfig, cmd string) (Result, error)
}

// DialRunner opens a fresh connection for every Run.
type DialRunner struct{}

// Run dials cfg.Host, runs cmd and closes the connection.
func (DialRunner) Run(ctx context.Context, cfg SessionConfig, cmd string) (Result, error) {
	client, err := Dial(ctx, cfg)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	defer client.Close()

	return client.Exec(ctx, cmd, cfg)
}

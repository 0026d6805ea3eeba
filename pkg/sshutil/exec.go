package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/mistio/mist/internal/errors"
)

// ExitError is returned for a non-zero exit when WarnOnly is off.
type ExitError struct {
	Code   int
	Output []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("remote command exited with status %d", e.Code)
}

// SignalError is returned when the remote command was killed by a signal.
type SignalError struct {
	Signal string
	Output []byte
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("remote command terminated by signal %s", e.Signal)
}

// IsTerminated reports whether err means the command was stopped before it
// could finish: the caller cancelled it or the remote side killed it.
func IsTerminated(err error) bool {
	var sigErr *SignalError
	return stderrors.Is(err, context.Canceled) || stderrors.As(err, &sigErr)
}

// lockedBuffer lets stdout and stderr share one buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Exec runs cmd in a new session. Without CombineOutput, stderr is discarded.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(ctx context.Context, cmd string, cfg SessionConfig) (Result, error) {
	session, err := c.NewSession()
	if err != nil {
		return Result{ExitCode: -1}, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try again.")
	}
	defer session.Close()

	var out lockedBuffer
	session.Stdout = &out
	session.Stderr = io.Discard
	if cfg.CombineOutput {
		session.Stderr = &out
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		session.Close()
		return Result{Output: out.Bytes(), ExitCode: -1}, ctx.Err()
	case err = <-done:
	}

	result := Result{Output: out.Bytes()}
	if err == nil {
		return result, nil
	}

	var exitErr *ssh.ExitError
	if !stderrors.As(err, &exitErr) {
		result.ExitCode = -1
		return result, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to execute command: %s", cmd),
			"The connection dropped before the command finished.")
	}

	if sig := exitErr.Signal(); sig != "" {
		result.ExitCode = -1
		return result, &SignalError{Signal: sig, Output: result.Output}
	}

	result.ExitCode = exitErr.ExitStatus()
	if cfg.WarnOnly {
		return result, nil
	}
	return result, &ExitError{Code: result.ExitCode, Output: result.Output}
}

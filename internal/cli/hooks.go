package cli

import (
	"context"
	stderrors "errors"
	"os"

	"golang.org/x/term"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/exec"
	"github.com/mistio/mist/pkg/sshutil"
)

// Seams replaced in tests.
var (
	connectBackend = func(ctx context.Context, b config.Backend) (backend.Connection, error) {
		return backend.Connect(ctx, b)
	}

	newExecutor = func(defaults sshutil.SessionConfig) *exec.Executor {
		return exec.NewExecutor(exec.WithSessionDefaults(defaults))
	}

	isInteractive = func() bool {
		return term.IsTerminal(int(os.Stdin.Fd()))
	}
)

// errReported tells Execute the command already printed its failure.
var errReported = stderrors.New("failure already reported")

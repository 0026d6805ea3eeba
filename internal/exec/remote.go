package exec

import (
	"context"
	"strings"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/logger"
	"github.com/mistio/mist/internal/util"
	"github.com/mistio/mist/pkg/sshutil"
)

// SSHUserTag is the machine tag that remembers which user to log in as.
const SSHUserTag = "ssh_user"

// loginHint starts the banner some images print instead of running a
// command when you log in as the wrong user, e.g.
//
//	Please login as the user "ec2-user" rather than the user "root".
const loginHint = "Please login as the"

// Request describes one command to run on a machine.
type Request struct {
	// Conn is the backend the machine lives on. It is only used to tag the
	// machine with the user it accepts.
	Conn      backend.Connection
	MachineID string

	Host       string
	SSHUser    string
	PrivateKey string
	Command    string
}

// Executor runs commands over SSH.
type Executor struct {
	runner   sshutil.Runner
	log      logger.Logger
	defaults sshutil.SessionConfig
}

// Option configures an Executor.
type Option func(*Executor)

// WithRunner sets the SSH runner. Defaults to sshutil.DialRunner.
func WithRunner(r sshutil.Runner) Option {
	return func(e *Executor) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// WithSessionDefaults sets the connection settings shared by every run,
// such as Timeout, KnownHostsPath or UseSSHConfig. Host, user, key and
// output handling are always set per request.
func WithSessionDefaults(cfg sshutil.SessionConfig) Option {
	return func(e *Executor) { e.defaults = cfg }
}

// NewExecutor returns an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		runner: sshutil.DialRunner{},
		log:    logger.NewEnvLogger("[exec]"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunCommand runs req.Command on req.Host and returns its combined output.
// A non-zero exit is logged, not returned. Failures come back as
// *errors.Error values whose Status is 503, or 204 when the command was
// cancelled or killed. An empty command returns "" without connecting.
//
// Some images refuse the chosen user with a banner naming the right one.
// The machine is then tagged with that user and the command retried once.
func (e *Executor) RunCommand(ctx context.Context, req Request) (string, error) {
	if req.Host == "" {
		e.log.Error("host not provided, exiting")
		return "", errors.New(errors.ErrExec, "Host not set",
			"The machine has no public IP or DNS name yet").WithStatus(errors.StatusUnavailable)
	}
	if req.Command == "" {
		e.log.Warn("no command was passed, returning empty")
		return "", nil
	}

	var output string
	err := util.WithTempFile("mist-key-*", []byte(req.PrivateKey), func(keyFile string) error {
		cfg := e.sessionConfig(req, keyFile)

		res, err := e.run(ctx, cfg, req.Command)
		if err != nil {
			return err
		}

		if user, ok := SuggestedUser(string(res.Output)); ok {
			e.log.Info("%s asks for user %s, retrying", req.Host, user)
			if req.Conn == nil {
				return errors.New(errors.ErrExec, "No backend to tag the machine on", "")
			}
			if err := req.Conn.CreateTags(ctx, req.MachineID, map[string]string{SSHUserTag: user}); err != nil {
				return err
			}
			cfg.User = user
			if res, err = e.run(ctx, cfg, req.Command); err != nil {
				return err
			}
		}

		output = string(res.Output)
		return nil
	})
	if err != nil {
		return "", e.failure(err)
	}
	return output, nil
}

func (e *Executor) sessionConfig(req Request, keyFile string) sshutil.SessionConfig {
	cfg := e.defaults
	cfg.Host = req.Host
	cfg.User = req.SSHUser
	cfg.KeyFile = keyFile
	cfg.CombineOutput = true
	cfg.WarnOnly = true
	return cfg
}

func (e *Executor) run(ctx context.Context, cfg sshutil.SessionConfig, cmd string) (sshutil.Result, error) {
	e.log.Debug("running %q on %s as %s", cmd, cfg.Host, userOrDefault(cfg.User))
	res, err := e.runner.Run(ctx, cfg, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		e.log.Warn("%q exited with status %d on %s", cmd, res.ExitCode, cfg.Host)
		if name, ok := IsCommandNotFound(string(res.Output), res.ExitCode); ok {
			e.log.Warn("%s", commandNotFoundHint(cmd, name))
		}
	}
	return res, nil
}

// failure converts err into the structured response handed to callers.
func (e *Executor) failure(err error) error {
	if sshutil.IsTerminated(err) {
		e.log.Warn("command terminated: %v", err)
		return errors.WrapWithCode(err, errors.ErrExec, "Command terminated before it finished", "").
			WithStatus(errors.StatusAborted)
	}
	e.log.Error("exception while executing command: %v", err)
	return errors.WrapWithCode(err, errors.ErrExec, "Exception while executing command", "").
		WithStatus(errors.StatusUnavailable)
}

// SuggestedUser extracts the user named by a wrong-user login banner.
func SuggestedUser(output string) (string, bool) {
	idx := strings.Index(output, loginHint)
	if idx < 0 {
		return "", false
	}
	banner := output[idx:]

	// "Please login as the ec2-user user ..." vs
	// "Please login as the user "ubuntu" rather than ..."
	pos := 4
	if strings.HasPrefix(banner, loginHint+" user ") {
		pos = 5
	}
	fields := strings.Fields(banner)
	if len(fields) <= pos {
		return "", false
	}
	user := strings.Trim(fields[pos], `"'`)
	return user, user != ""
}

func userOrDefault(user string) string {
	if user == "" {
		return sshutil.DefaultUser
	}
	return user
}

var defaultExecutor = NewExecutor()

// RunCommand runs a command with the default Executor.
func RunCommand(ctx context.Context, req Request) (string, error) {
	return defaultExecutor.RunCommand(ctx, req)
}

package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mistio/mist/internal/errors"
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The host or alias from the SessionConfig
	User    string // The user that authenticated
	Address string // The resolved address (host:port)
}

// Dial establishes an SSH connection described by cfg.
// The host can be:
//   - A hostname or IP (e.g., "ec2-54-1-2-3.compute-1.amazonaws.com")
//   - A hostname:port (e.g., "192.168.1.100:2222")
//   - An SSH config alias, when cfg.UseSSHConfig is set
func Dial(ctx context.Context, cfg SessionConfig) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.ErrSSH, "No host to connect to", "Set the machine's public IP or DNS name")
	}

	settings := resolveSSHSettings(cfg)

	config, err := buildSSHConfig(settings, cfg)
	if err != nil {
		// Already structured errors pass through
		var mErr *errors.Error
		if stderrors.As(err, &mErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", cfg.Host),
			"Check the private key is valid and not passphrase protected")
	}

	address := settings.address()
	dialer := net.Dialer{Timeout: cfg.timeout()}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", cfg.Host, address),
			suggestionForDialError(err))
	}

	// The handshake has no context of its own; closing the conn aborts it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	stop()
	if err != nil {
		conn.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' as %s didn't go through", cfg.Host, settings.user),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    cfg.Host,
		User:    settings.user,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// sshSettings holds resolved SSH connection parameters.
type sshSettings struct {
	hostname string
	port     string
	user     string
}

// address returns the host:port string for dialing.
func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings splits host:port and, when asked, applies ssh_config.
func resolveSSHSettings(cfg SessionConfig) *sshSettings {
	host := cfg.Host
	settings := &sshSettings{
		port: "22",
		user: cfg.user(),
	}

	if h, p, err := net.SplitHostPort(host); err == nil {
		host, settings.port = h, p
	}
	settings.hostname = host

	if !cfg.UseSSHConfig {
		return settings
	}

	configPath := expandPath(cfg.SSHConfigPath)
	if configPath == "" {
		configPath = filepath.Join(homeDir(), ".ssh", "config")
	}
	entry, err := LookupHost(configPath, host)
	if err != nil {
		// Config doesn't exist or can't be read, that's fine
		return settings
	}

	if entry.Hostname != "" {
		settings.hostname = entry.Hostname
	}
	if entry.Port != "" {
		settings.port = entry.Port
	}
	if entry.User != "" && cfg.User == "" {
		settings.user = entry.User
	}
	return settings
}

// buildSSHConfig creates a client config that authenticates with the
// configured key file only.
func buildSSHConfig(settings *sshSettings, cfg SessionConfig) (*ssh.ClientConfig, error) {
	if cfg.KeyFile == "" {
		return nil, errors.New(errors.ErrSSH, "No private key for this machine",
			"Add a keypair in settings.yaml and associate it with the machine")
	}

	keyAuth, err := keyFileAuth(cfg.KeyFile)
	if err != nil {
		var encErr *EncryptedKeyError
		if stderrors.As(err, &encErr) {
			return nil, errors.New(errors.ErrSSH, encErr.Error(),
				"Keys used by mist must not require a passphrase")
		}
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // New cloud machines have no known_hosts entry
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = createHostKeyCallback(expandPath(cfg.KnownHostsPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            []ssh.AuthMethod{keyAuth},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.timeout(),
	}, nil
}

// keyFileAuth returns an auth method using a private key file.
// Returns EncryptedKeyError if the key requires a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var passErr *ssh.PassphraseMissingError
		if stderrors.As(err, &passErr) || strings.Contains(err.Error(), "encrypted") {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// Helper functions

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that machine? It may still be booting."
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check the machine has a public IP."
	}
	if strings.Contains(errStr, "timeout") {
		return "Connection timed out. Check the security group allows SSH."
	}
	return "Make sure the machine is running and reachable"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Auth failed. Check the keypair and ssh user for this machine."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Check the known_hosts file."
	}
	return "Something went wrong during SSH setup"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  If the machine was rebuilt, remove the old entry:\n"+
			"    ssh-keygen -f %s -R %s",
		wantStr, e.ReceivedType, e.KnownHosts, host)
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
		}
		return err
	}, nil
}

package cli

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/mistio/mist/internal/backend"
	"github.com/mistio/mist/internal/config"
	"github.com/mistio/mist/internal/exec"
	"github.com/mistio/mist/pkg/sshutil"
	sshtesting "github.com/mistio/mist/pkg/sshutil/testing"
)

// testRuntime points the CLI at a settings file in a fresh temp dir.
func testRuntime(t *testing.T) config.Runtime {
	t.Helper()
	return config.Runtime{SettingsPath: filepath.Join(t.TempDir(), "settings.yaml")}
}

func writeSettings(t *testing.T, rt config.Runtime, s *config.Settings) {
	t.Helper()
	require.NoError(t, config.Save(rt.SettingsPath, s))
}

func readSettings(t *testing.T, rt config.Runtime) *config.Settings {
	t.Helper()
	s, err := config.Load(rt.SettingsPath)
	require.NoError(t, err)
	return s
}

// stubConnect makes every backend resolve to conn.
func stubConnect(t *testing.T, conn backend.Connection) *[]config.Backend {
	t.Helper()
	var seen []config.Backend
	orig := connectBackend
	connectBackend = func(_ context.Context, b config.Backend) (backend.Connection, error) {
		seen = append(seen, b)
		return conn, nil
	}
	t.Cleanup(func() { connectBackend = orig })
	return &seen
}

// stubRunner routes remote commands to a scripted runner.
func stubRunner(t *testing.T, runner *sshtesting.MockRunner) *sshutil.SessionConfig {
	t.Helper()
	var defaults sshutil.SessionConfig
	orig := newExecutor
	newExecutor = func(d sshutil.SessionConfig) *exec.Executor {
		defaults = d
		return exec.NewExecutor(exec.WithRunner(runner), exec.WithSessionDefaults(d))
	}
	t.Cleanup(func() { newExecutor = orig })
	return &defaults
}

func nonInteractive(t *testing.T) {
	t.Helper()
	orig := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = orig })
}

// newKeyPair writes an unencrypted ed25519 key to dir and returns the
// private key path and the authorized_keys line.
func newKeyPair(t *testing.T, dir string) (string, string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	path := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return path, string(ssh.MarshalAuthorizedKey(sshPub))
}

// decodeEnvelope parses --json output.
func decodeEnvelope(t *testing.T, data []byte, into interface{}) JSONEnvelope {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *JSONError      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	if into != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, into))
	}
	return JSONEnvelope{Success: raw.Success, Error: raw.Error}
}

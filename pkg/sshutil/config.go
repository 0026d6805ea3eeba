package sshutil

import (
	"bytes"
	"os"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// HostEntry holds the ssh_config values mist uses for one host.
// IdentityFile is not read: sessions only offer their own key file.
type HostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// LookupHost resolves alias against the ssh_config file at configPath.
// Fields the file doesn't set are left empty.
func LookupHost(configPath, alias string) (HostEntry, error) {
	entry := HostEntry{Alias: alias}

	content, _, err := preprocessSSHConfig(configPath)
	if err != nil {
		return entry, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return entry, err
	}

	entry.Hostname, _ = cfg.Get(alias, "HostName")
	entry.User, _ = cfg.Get(alias, "User")
	entry.Port, _ = cfg.Get(alias, "Port")
	return entry, nil
}

// preprocessSSHConfig reads the SSH config and returns content up to the
// first Match directive, which ssh_config can't parse.
// Also returns the line number where Match was found (0 if not found).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	var result []string
	matchLine := 0

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "match ") {
			matchLine = i + 1
			break
		}
		result = append(result, line)
	}

	return []byte(strings.Join(result, "\n")), matchLine, nil
}

// Package cli implements the mist command-line interface.
//
// Each Cobra command is a thin wrapper: it parses arguments and hands off
// to a function taking an io.Writer and the resolved config.Runtime, which
// is what the tests call.
//
// # Command Structure
//
//	mist backends list|add|remove       - Manage settings.yaml backends
//	mist keys list|add|import           - Manage and import keypairs
//	mist machines <backend>             - List machines and allowed actions
//	mist secgroup create <backend> ...  - Create a permissive security group
//	mist run <backend> <id> <host> -- <cmd> - Run a command over SSH
//	mist settings show|check            - Inspect settings.yaml
//	mist version                        - Print build information
//
// # Flag Handling
//
// Global flags (--settings, --core-uri, --json, --debug) live on the root
// command and are bound to viper, so MIST_SETTINGS, MIST_CORE_URI,
// MIST_JSON and MIST_DEBUG work too. Flags win over the environment, and
// both win over settings.yaml.
//
// Commands that read settings apply the overrides. Commands that change
// settings load the file untouched so overrides are never written back.
//
// # Output
//
// With --json every command writes a JSONEnvelope. Failures carry a
// machine-readable code and, for remote commands, the HTTP-style status a
// web handler would answer with.
package cli

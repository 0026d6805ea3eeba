package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mistio/mist/internal/config"
)

func TestIsUnknownCommandError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unknown command error",
			err:  errors.New(`unknown command "foo" for "mist"`),
			want: true,
		},
		{
			name: "unknown flag error",
			err:  errors.New(`unknown flag: --foo`),
			want: true,
		},
		{
			name: "other error",
			err:  errors.New("connection failed"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUnknownCommandError(tt.err))
		})
	}
}

func TestExtractUnknownCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "standard cobra format",
			err:  errors.New(`unknown command "foo" for "mist"`),
			want: "foo",
		},
		{
			name: "command with hyphen",
			err:  errors.New(`unknown command "back-ends" for "mist"`),
			want: "back-ends",
		},
		{
			name: "no quotes returns empty",
			err:  errors.New("unknown command foo"),
			want: "",
		},
		{
			name: "single quote returns empty",
			err:  errors.New(`unknown command "foo`),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractUnknownCommand(tt.err))
		})
	}
}

func TestWithCommandSuggestion(t *testing.T) {
	err := withCommandSuggestion(errors.New(`unknown command "machnes" for "mist"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown command 'machnes'")
	assert.Contains(t, err.Error(), "Did you mean: machines?")

	err = withCommandSuggestion(errors.New(`unknown command "zzzzzzzzzz" for "mist"`))
	assert.Contains(t, err.Error(), "mist --help")
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"backends", "keys", "machines", "secgroup", "run", "settings", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestGlobalFlagsBoundToViper(t *testing.T) {
	for _, name := range []string{"settings", "core-uri", "json", "debug"} {
		require.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "missing flag %s", name)
	}

	t.Setenv("MIST_CORE_URI", "https://env.example.com")
	rt := config.ResolveRuntime(Viper())
	assert.Equal(t, "https://env.example.com", rt.CoreURI)
	assert.Equal(t, config.SettingsFileName, rt.SettingsPath)

	require.NoError(t, rootCmd.PersistentFlags().Set("core-uri", "https://flag.example.com"))
	t.Cleanup(func() {
		f := rootCmd.PersistentFlags().Lookup("core-uri")
		_ = f.Value.Set("")
		f.Changed = false
	})
	assert.Equal(t, "https://flag.example.com", config.ResolveRuntime(Viper()).CoreURI)
}

package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Runtime holds process-level options that sit outside settings.yaml.
// They come from CLI flags and MIST_* environment variables.
type Runtime struct {
	SettingsPath string
	CoreURI      string
	Debug        bool
	JSON         bool
}

// Keys used to bind flags and environment variables.
const (
	KeySettings = "settings"
	KeyCoreURI  = "core_uri"
	KeyDebug    = "debug"
	KeyJSON     = "json"
)

// NewViper returns a viper instance reading MIST_* environment variables,
// e.g. MIST_CORE_URI or MIST_SETTINGS.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MIST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeySettings, SettingsFileName)
	v.SetDefault(KeyDebug, false)
	v.SetDefault(KeyJSON, false)
	return v
}

// ResolveRuntime reads the outer configuration layer from v.
func ResolveRuntime(v *viper.Viper) Runtime {
	return Runtime{
		SettingsPath: v.GetString(KeySettings),
		CoreURI:      v.GetString(KeyCoreURI),
		Debug:        v.GetBool(KeyDebug),
		JSON:         v.GetBool(KeyJSON),
	}
}

// LoadWithRuntime loads the settings file named by rt and applies its overrides.
func LoadWithRuntime(rt Runtime) (*Settings, error) {
	s, err := Load(rt.SettingsPath)
	if err != nil {
		return nil, err
	}
	s.ApplyOverrides(rt.CoreURI)
	return s, nil
}

package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/mistio/mist/internal/errors"
	"github.com/mistio/mist/internal/logger"
	"gopkg.in/yaml.v3"
)

// SettingsFileName is the default settings file, relative to the working directory.
const SettingsFileName = "settings.yaml"

var log = logger.NewEnvLogger("[config]")

// fileSettings mirrors Settings with pointers so absent keys can be told apart
// from zero values.
type fileSettings struct {
	Keypairs   map[string]Keypair `yaml:"keypairs"`
	Backends   []Backend          `yaml:"backends"`
	CoreURI    *string            `yaml:"core_uri"`
	JSBuild    *bool              `yaml:"js_build"`
	JSLogLevel *int               `yaml:"js_log_level"`
}

// Load reads settings from path.
//
// A missing file is created empty for later use and defaults are returned
// without being written. A file that exists but isn't valid YAML is a fatal
// configuration error.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = SettingsFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot read "+path,
				"Check file permissions")
		}
		log.Warn("%s does not exist.", path)
		if err := createEmpty(path); err != nil {
			return nil, err
		}
		data = nil
	}

	var raw fileSettings
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			log.Error("Error parsing %s", path)
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Error parsing "+path,
				"Check the YAML syntax in "+path)
		}
	}

	return fromFile(raw), nil
}

func createEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create "+path,
			"Check the directory is writable")
	}
	return f.Close()
}

func fromFile(raw fileSettings) *Settings {
	s := DefaultSettings()
	if raw.Keypairs != nil {
		s.Keypairs = raw.Keypairs
	}
	if raw.Backends != nil {
		s.Backends = raw.Backends
	}
	if raw.CoreURI != nil {
		s.CoreURI = *raw.CoreURI
	}
	if raw.JSBuild != nil {
		s.JSBuild = *raw.JSBuild
	}
	if raw.JSLogLevel != nil {
		s.JSLogLevel = *raw.JSLogLevel
	}
	return s
}

// Save writes settings to path, overwriting it in place.
// Key material is emitted as literal block scalars so multi-line keys stay readable.
func Save(path string, s *Settings) error {
	if path == "" {
		path = SettingsFileName
	}

	data, err := Marshal(s)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check the file is writable")
	}
	return nil
}

// Marshal renders settings in the on-disk format.
func Marshal(s *Settings) ([]byte, error) {
	keypairs := s.Keypairs
	if keypairs == nil {
		keypairs = map[string]Keypair{}
	}
	backends := s.Backends
	if backends == nil {
		backends = []Backend{}
	}

	var root yaml.Node
	if err := root.Encode(&Settings{
		Keypairs:   keypairs,
		Backends:   backends,
		CoreURI:    s.CoreURI,
		JSBuild:    s.JSBuild,
		JSLogLevel: s.JSLogLevel,
	}); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode settings", "")
	}

	if keypairsNode := findMapValue(&root, "keypairs"); keypairsNode != nil {
		literalKeyMaterial(keypairsNode)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode settings", "")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to encode settings", "")
	}
	return buf.Bytes(), nil
}

// literalKeyMaterial switches every keypair's public/private scalar to literal style.
// Block scalars can't start with a line break, so such values keep the
// encoder's quoted style.
func literalKeyMaterial(keypairs *yaml.Node) {
	if keypairs.Kind != yaml.MappingNode {
		return
	}
	for i := 1; i < len(keypairs.Content); i += 2 {
		pair := keypairs.Content[i]
		for _, field := range []string{"public", "private"} {
			if v := findMapValue(pair, field); v != nil && v.Kind == yaml.ScalarNode && v.Value != "" && !strings.HasPrefix(v.Value, "\n") {
				v.Style = yaml.LiteralStyle
			}
		}
	}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i < len(node.Content)-1; i += 2 {
		keyNode := node.Content[i]
		valueNode := node.Content[i+1]

		if keyNode.Kind == yaml.ScalarNode && keyNode.Value == key {
			return valueNode
		}
	}

	return nil
}

package config

// DefaultCoreURI is used when neither the settings file nor an outer
// configuration layer sets core_uri.
const DefaultCoreURI = "https://mist.io"

// DefaultJSLogLevel is the UI log level when the settings file omits it.
const DefaultJSLogLevel = 3

// Settings represents the complete settings.yaml file.
type Settings struct {
	// Keypairs maps a keypair name to its key material.
	Keypairs map[string]Keypair `yaml:"keypairs"`

	// Backends is the ordered list of configured cloud accounts.
	// The CLI and request handlers address backends by index.
	Backends []Backend `yaml:"backends"`

	CoreURI    string `yaml:"core_uri"`
	JSBuild    bool   `yaml:"js_build"`
	JSLogLevel int    `yaml:"js_log_level"`
}

// Keypair holds the public and private halves of an SSH key.
type Keypair struct {
	Public  string `yaml:"public"`
	Private string `yaml:"private"`
}

// Backend identifies one configured cloud account.
// Which of the optional fields are required depends on the provider family.
type Backend struct {
	// Title is a human-friendly label shown by the CLI.
	Title string `yaml:"title,omitempty"`

	// Provider is the driver key, e.g. "ec2_eu_west", "linode", "openstack".
	Provider string `yaml:"provider"`

	// ID is the API user / access key. Ignored by Linode.
	ID string `yaml:"id"`

	// Secret is the API secret, password or token.
	Secret string `yaml:"secret"`

	// Region is used by first generation Rackspace ("us" or "uk").
	Region string `yaml:"region,omitempty"`

	// Datacenter is used by current Rackspace ("dfw", "ord", "lon", ...).
	Datacenter string `yaml:"datacenter,omitempty"`

	// AuthURL and AuthVersion are used by OpenStack.
	AuthURL     string `yaml:"auth_url,omitempty"`
	AuthVersion string `yaml:"auth_version,omitempty"`
}

// Label returns the title if set, otherwise the provider name.
func (b Backend) Label() string {
	if b.Title != "" {
		return b.Title
	}
	return b.Provider
}

// DefaultSettings returns Settings with the in-memory defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Keypairs:   make(map[string]Keypair),
		Backends:   []Backend{},
		CoreURI:    DefaultCoreURI,
		JSBuild:    false,
		JSLogLevel: DefaultJSLogLevel,
	}
}

// ApplyOverrides lets an outer configuration layer take precedence over the file.
// Empty values leave the loaded setting untouched.
func (s *Settings) ApplyOverrides(coreURI string) {
	if coreURI != "" {
		s.CoreURI = coreURI
	}
}

package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"steamguard/internal/domain"
	"steamguard/internal/steamapi"
)

// Default configuration values.
const (
	DefaultHTTPTimeout = 30 * time.Second
	DefaultQRWait      = 2 * time.Minute

	defaultManifestName = "manifest.json"
	configName          = "config.yaml"
	appDirName          = "steamguard"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds runtime wiring options for building the app. The zero
// value is completed by Default-prefixed constants at wire time, so a
// config file only needs the keys it overrides.
type Config struct {
	// ManifestPath locates the encrypted account manifest.
	ManifestPath string `yaml:"manifest_path"`
	// APIBase and CommunityBase override the Steam endpoints, used to
	// point the CLI at a test double.
	APIBase       string `yaml:"api_base"`
	CommunityBase string `yaml:"community_base"`

	HTTPTimeout Duration `yaml:"http_timeout"`
	// QRWait caps how long a qr-login invocation waits for approval.
	QRWait Duration `yaml:"qr_wait"`
}

// ConfigDir returns the per-user directory holding the config file and
// the default manifest.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", domain.Errf(domain.KindIO, err, "locate user config dir")
	}
	return filepath.Join(base, appDirName), nil
}

// LoadConfig reads the YAML config at path. An empty path falls back to
// the per-user config file, and its absence is not an error: the
// defaults stand alone.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		dir, err := ConfigDir()
		if err != nil {
			return Config{}, err
		}
		path = filepath.Join(dir, configName)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Config{}, nil
		}
		return Config{}, domain.Errf(domain.KindIO, err, "read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, domain.Errf(domain.KindIO, err, "parse config %s", path)
	}
	return cfg, nil
}

// withDefaults fills unset fields.
func (c Config) withDefaults() (Config, error) {
	if c.ManifestPath == "" {
		dir, err := ConfigDir()
		if err != nil {
			return c, err
		}
		c.ManifestPath = filepath.Join(dir, defaultManifestName)
	}
	if c.APIBase == "" {
		c.APIBase = steamapi.DefaultAPIBase
	}
	if c.CommunityBase == "" {
		c.CommunityBase = steamapi.DefaultCommunityBase
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.QRWait <= 0 {
		c.QRWait = Duration(DefaultQRWait)
	}
	return c, nil
}

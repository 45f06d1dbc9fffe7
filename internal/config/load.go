package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"computegen/internal/errors"
)

// FileName is the project config file looked up from the working directory upwards.
const FileName = "computegen.toml"

// New returns a viper instance with defaults, env binding and, when found,
// the project config file. An explicit path overrides the lookup.
func New(path string) (*viper.Viper, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("COMPUTEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if path == "" {
		path = findProjectConfig()
	}
	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to read config file %s", path), errors.ErrConfiguration)
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals without validating.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to unmarshal config"), errors.ErrConfiguration)
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source) == "" {
		return errors.WithHint(
			errors.Configurationf("no source root configured"),
			"pass --source or set source in "+FileName)
	}
	if strings.TrimSpace(c.Dist) == "" {
		return errors.Configurationf("no output directory configured")
	}
	for _, target := range c.Targets {
		if !slices.Contains(CodeTargets, target) {
			return errors.WithHint(
				errors.Configurationf("unknown target %q", target),
				"known targets: "+strings.Join(CodeTargets, ", "))
		}
	}
	for _, target := range c.DocTargets {
		if !slices.Contains(DocTargets, target) {
			return errors.WithHint(
				errors.Configurationf("unknown documentation target %q", target),
				"known documentation targets: "+strings.Join(DocTargets, ", "))
		}
	}
	if c.Watch.Debounce < 0 {
		return errors.Configurationf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
	}
	return nil
}

func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mend/pkg/logging"
)

// Load reads, parses, and validates the config file at path. A missing file
// is not an error: the defaults apply, which lets `mend run` work out of the
// box with an inline suite.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logging.Debug("Config", "No config file at %s, using defaults", path)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	logging.Debug("Config", "Loaded config from %s (%d tests, healing enabled=%v)",
		path, len(cfg.Suite.Tests), cfg.Healing.Enabled)
	return &cfg, nil
}

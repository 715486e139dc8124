package config

import (
	"os"
	"path/filepath"
	"time"

	"mend/internal/healing"
)

// DefaultConfigDir returns the default configuration directory,
// ~/.config/mend.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mend"
	}
	return filepath.Join(home, ".config", "mend")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Default returns the built-in configuration. Loaded files are unmarshalled
// over this, so absent keys keep these values.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Healing: HealingSettings{
			Enabled:             true,
			ConfidenceThreshold: healing.DefaultConfidenceThreshold,
			MaxAttempts:         healing.DefaultMaxAttempts,
			Timeout:             Duration(healing.DefaultTimeout),
			SelectorAliasPath:   filepath.Join(DefaultConfigDir(), "selector-aliases.yaml"),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Suite: SuiteConfig{
			Parallelism: 4,
		},
		Preferences: PreferencesConfig{
			RiskTolerance: string(healing.RiskMedium),
		},
	}
}

// default per-test timeout applied by validation when a spec omits one.
const defaultTestTimeout = Duration(5 * time.Minute)

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"mend/internal/healing"
)

// Duration wraps time.Duration so YAML configs can say "30s" or "2m".
// Bare integers are treated as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw interface{}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoggingConfig controls the logging layer.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// HealingSettings is the file-level healing configuration. It converts to a
// healing.Config per call via ToHealing.
type HealingSettings struct {
	Enabled             bool     `yaml:"enabled"`
	ConfidenceThreshold float64  `yaml:"confidenceThreshold"`
	MaxAttempts         int      `yaml:"maxAttempts"`
	Strategies          []string `yaml:"strategies,omitempty"`
	Timeout             Duration `yaml:"timeout"`
	// SelectorAliasPath is where the selector-update strategy persists its
	// learned alias map. Empty disables persistence.
	SelectorAliasPath string `yaml:"selectorAliasPath,omitempty"`
}

// ToHealing converts the file settings into the per-call healing config.
func (h HealingSettings) ToHealing() healing.Config {
	return healing.Config{
		Enabled:             h.Enabled,
		ConfidenceThreshold: h.ConfidenceThreshold,
		MaxAttempts:         h.MaxAttempts,
		Strategies:          h.Strategies,
		Timeout:             h.Timeout.Std(),
	}
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// TestSpec describes one test the suite runner executes.
type TestSpec struct {
	// ID uniquely names the test within the suite.
	ID string `yaml:"id"`
	// Command is the argv the engine runs; a non-zero exit is a failure.
	Command []string `yaml:"command"`
	// Workdir is the working directory for the command (default: cwd).
	Workdir string `yaml:"workdir,omitempty"`
	// Env is appended to the process environment.
	Env map[string]string `yaml:"env,omitempty"`
	// Timeout bounds one execution of the command.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// SuiteConfig describes the test suite and how to run it.
type SuiteConfig struct {
	// Parallelism caps how many tests run (and heal) concurrently.
	Parallelism int        `yaml:"parallelism"`
	Tests       []TestSpec `yaml:"tests"`
}

// PreferencesConfig carries the operator's healing preferences.
type PreferencesConfig struct {
	PreferredStrategies []string `yaml:"preferredStrategies,omitempty"`
	RiskTolerance       string   `yaml:"riskTolerance,omitempty"`
}

// Config is the root of mend's YAML configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Healing     HealingSettings   `yaml:"healing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Suite       SuiteConfig       `yaml:"suite"`
	Preferences PreferencesConfig `yaml:"preferences"`
}

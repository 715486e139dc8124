package config

import (
	"fmt"

	"mend/internal/healing"
)

// Validate checks the configuration for inconsistencies and fills in
// derived defaults (per-test timeouts).
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}

	if c.Healing.ConfidenceThreshold < 0 || c.Healing.ConfidenceThreshold > 1 {
		return fmt.Errorf("healing.confidenceThreshold %v must be within [0,1]", c.Healing.ConfidenceThreshold)
	}
	if c.Healing.MaxAttempts < 1 {
		return fmt.Errorf("healing.maxAttempts %d must be at least 1", c.Healing.MaxAttempts)
	}
	if c.Healing.Timeout <= 0 {
		return fmt.Errorf("healing.timeout must be positive")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port %d is not a valid port", c.Metrics.Port)
	}

	if c.Suite.Parallelism < 1 {
		return fmt.Errorf("suite.parallelism %d must be at least 1", c.Suite.Parallelism)
	}

	seen := make(map[string]bool, len(c.Suite.Tests))
	for i := range c.Suite.Tests {
		test := &c.Suite.Tests[i]
		if test.ID == "" {
			return fmt.Errorf("suite.tests[%d] has no id", i)
		}
		if seen[test.ID] {
			return fmt.Errorf("suite.tests has duplicate id %q", test.ID)
		}
		seen[test.ID] = true
		if len(test.Command) == 0 {
			return fmt.Errorf("suite.tests[%s] has no command", test.ID)
		}
		if test.Timeout <= 0 {
			test.Timeout = defaultTestTimeout
		}
	}

	switch healing.RiskTolerance(c.Preferences.RiskTolerance) {
	case "", healing.RiskLow, healing.RiskMedium, healing.RiskHigh:
	default:
		return fmt.Errorf("preferences.riskTolerance %q is not one of low, medium, high", c.Preferences.RiskTolerance)
	}

	return nil
}

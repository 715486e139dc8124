package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/healing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.True(t, cfg.Healing.Enabled)
	assert.Equal(t, healing.DefaultConfidenceThreshold, cfg.Healing.ConfidenceThreshold)
	assert.Equal(t, healing.DefaultMaxAttempts, cfg.Healing.MaxAttempts)
	assert.Equal(t, healing.DefaultTimeout, cfg.Healing.Timeout.Std())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 4, cfg.Suite.Parallelism)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
healing:
  enabled: true
  confidenceThreshold: 0.7
  maxAttempts: 5
  timeout: 10s
  strategies: [retry, backoff-adjust]
metrics:
  enabled: true
  port: 9191
suite:
  parallelism: 2
  tests:
    - id: login
      command: ["npx", "playwright", "test", "login.spec.ts"]
      timeout: 90s
    - id: checkout
      command: ["npx", "playwright", "test", "checkout.spec.ts"]
preferences:
  preferredStrategies: [selector-update]
  riskTolerance: high
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 0.7, cfg.Healing.ConfidenceThreshold)
	assert.Equal(t, 5, cfg.Healing.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Healing.Timeout.Std())
	assert.Equal(t, []string{"retry", "backoff-adjust"}, cfg.Healing.Strategies)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)

	require.Len(t, cfg.Suite.Tests, 2)
	assert.Equal(t, 90*time.Second, cfg.Suite.Tests[0].Timeout.Std())
	// Omitted per-test timeout gets the derived default.
	assert.Equal(t, 5*time.Minute, cfg.Suite.Tests[1].Timeout.Std())

	assert.Equal(t, []string{"selector-update"}, cfg.Preferences.PreferredStrategies)
	assert.Equal(t, "high", cfg.Preferences.RiskTolerance)
}

func TestLoad_IntegerDurationIsSeconds(t *testing.T) {
	path := writeConfig(t, `
healing:
  enabled: true
  confidenceThreshold: 0.5
  maxAttempts: 3
  timeout: 45
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Healing.Timeout.Std())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "healing: [not: a: mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_ToHealing(t *testing.T) {
	settings := HealingSettings{
		Enabled:             true,
		ConfidenceThreshold: 0.6,
		MaxAttempts:         2,
		Strategies:          []string{"retry"},
		Timeout:             Duration(15 * time.Second),
	}

	cfg := settings.ToHealing()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0.6, cfg.ConfidenceThreshold)
	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, []string{"retry"}, cfg.Strategies)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Suite.Tests = []TestSpec{{ID: "a", Command: []string{"true"}}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"threshold too high", func(c *Config) { c.Healing.ConfidenceThreshold = 1.5 }, "confidenceThreshold"},
		{"threshold negative", func(c *Config) { c.Healing.ConfidenceThreshold = -0.1 }, "confidenceThreshold"},
		{"zero attempts", func(c *Config) { c.Healing.MaxAttempts = 0 }, "maxAttempts"},
		{"zero timeout", func(c *Config) { c.Healing.Timeout = 0 }, "timeout"},
		{"bad metrics port", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Port = 0 }, "metrics.port"},
		{"zero parallelism", func(c *Config) { c.Suite.Parallelism = 0 }, "parallelism"},
		{"missing test id", func(c *Config) { c.Suite.Tests[0].ID = "" }, "no id"},
		{"duplicate test id", func(c *Config) {
			c.Suite.Tests = append(c.Suite.Tests, TestSpec{ID: "a", Command: []string{"true"}})
		}, "duplicate id"},
		{"missing command", func(c *Config) { c.Suite.Tests[0].Command = nil }, "no command"},
		{"bad risk tolerance", func(c *Config) { c.Preferences.RiskTolerance = "reckless" }, "riskTolerance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

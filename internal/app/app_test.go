package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/config"
	"mend/internal/healing"
)

func newTestApp(t *testing.T) *Application {
	t.Helper()
	cfg := config.Default()
	cfg.Healing.Enabled = true
	cfg.Healing.SelectorAliasPath = filepath.Join(t.TempDir(), "aliases.yaml")
	cfg.Suite.Tests = []config.TestSpec{
		{ID: "noop", Command: []string{"true"}},
	}
	application, err := New(&cfg)
	require.NoError(t, err)
	return application
}

func TestNew_RegistersBuiltinStrategies(t *testing.T) {
	application := newTestApp(t)

	names := make([]string, 0)
	for _, s := range application.Coordinator().Registry().Strategies() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"retry", "backoff-adjust", "selector-update", "wait-for-element"}, names)
}

func TestStartStop(t *testing.T) {
	application := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, application.Start(ctx))
	application.Stop(ctx)
}

func TestRunSuite_PassingTest(t *testing.T) {
	application := newTestApp(t)

	reports, err := application.RunSuite(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)
}

func TestApplyConfig_SwapsSuite(t *testing.T) {
	application := newTestApp(t)

	updated := config.Default()
	updated.Suite.Tests = []config.TestSpec{
		{ID: "a", Command: []string{"true"}},
		{ID: "b", Command: []string{"true"}},
	}
	application.ApplyConfig(&updated)

	assert.Len(t, application.Config().Suite.Tests, 2)
	reports, err := application.RunSuite(context.Background())
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestApplyConfig_ProbesUseUpdatedSuite(t *testing.T) {
	cfg := config.Default()
	cfg.Healing.Enabled = true
	cfg.Healing.SelectorAliasPath = filepath.Join(t.TempDir(), "aliases.yaml")
	cfg.Suite.Tests = []config.TestSpec{
		{ID: "t1", Command: []string{"false"}},
	}
	application, err := New(&cfg)
	require.NoError(t, err)

	updated := cfg
	updated.Suite.Tests = []config.TestSpec{
		{ID: "t1", Command: []string{"true"}},
	}
	application.ApplyConfig(&updated)

	// Strategy probes must re-execute the swapped-in command, not the one
	// from the suite the strategies were registered against.
	failure := healing.TestFailure{
		ID:        "f1",
		TestID:    "t1",
		Type:      healing.FailureTimeout,
		Message:   "timeout waiting for page",
		Timestamp: time.Now(),
	}
	result := application.Coordinator().Heal(context.Background(),
		failure,
		healing.Context{AvailableStrategies: []string{"retry"}},
		healing.Config{Enabled: true, MaxAttempts: 3, ConfidenceThreshold: 0.5, Timeout: 5 * time.Second},
	)

	assert.True(t, result.Success, "heal should probe the updated suite: %s", result.Message)
	assert.Equal(t, "retry", result.Metadata[healing.MetadataStrategy])
}

func TestApplyConfig_RefreshesHealingPolicy(t *testing.T) {
	application := newTestApp(t)

	updated := *application.Config()
	updated.Healing.MaxAttempts = 7
	updated.Healing.Strategies = []string{"retry"}
	updated.Preferences.PreferredStrategies = []string{"wait-for-element"}
	application.ApplyConfig(&updated)

	policy, hctx := application.healingPolicy()
	assert.Equal(t, 7, policy.MaxAttempts)
	assert.Equal(t, []string{"retry"}, hctx.AvailableStrategies)
	assert.Equal(t, []string{"wait-for-element"}, hctx.UserPreferences.PreferredStrategies)
}

func TestMCPServer_Builds(t *testing.T) {
	application := newTestApp(t)
	assert.NotNil(t, application.MCPServer("test"))
}

func TestHealingContextFromPreferences(t *testing.T) {
	cfg := config.Default()
	cfg.Preferences.PreferredStrategies = []string{"retry"}
	cfg.Preferences.RiskTolerance = string(healing.RiskHigh)
	application, err := New(&cfg)
	require.NoError(t, err)

	assert.NotNil(t, application.MCPServer("test"))
}

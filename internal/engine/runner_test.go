package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/config"
	"mend/internal/healing"
)

// scriptedEngine returns canned results per test, indexed by how many times
// that test has run.
type scriptedEngine struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]ExecutionResult
}

func newScriptedEngine() *scriptedEngine {
	return &scriptedEngine{calls: make(map[string]int), results: make(map[string][]ExecutionResult)}
}

func (e *scriptedEngine) on(testID string, results ...ExecutionResult) {
	e.results[testID] = results
}

func (e *scriptedEngine) Execute(_ context.Context, spec config.TestSpec) ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	call := e.calls[spec.ID]
	e.calls[spec.ID]++

	script := e.results[spec.ID]
	if call < len(script) {
		return script[call]
	}
	return script[len(script)-1]
}

// fixStrategy is a stub that always reports a confident successful heal.
type fixStrategy struct {
	succeed bool
}

func (s *fixStrategy) Name() string    { return "fix" }
func (s *fixStrategy) Version() string { return "1.0.0" }
func (s *fixStrategy) SupportedFailureTypes() []healing.FailureType {
	return healing.FailureTypes()
}

func (s *fixStrategy) Heal(context.Context, healing.TestFailure, healing.Context) (healing.AttemptResult, error) {
	return healing.AttemptResult{
		Success:    s.succeed,
		Confidence: 0.9,
		Actions:    []healing.Action{{Type: "fix", Result: healing.ActionSuccess, Timestamp: time.Now()}},
	}, nil
}

func pass() ExecutionResult { return ExecutionResult{Passed: true, Output: "ok"} }
func fail() ExecutionResult { return ExecutionResult{ExitCode: 1, Output: "timeout waiting for page"} }

func testConfig(tests ...config.TestSpec) *config.Config {
	cfg := config.Default()
	cfg.Healing.Enabled = true
	cfg.Suite.Tests = tests
	return &cfg
}

func newTestRunner(t *testing.T, eng Engine, strat healing.Strategy, cfg *config.Config) *Runner {
	t.Helper()
	registry := healing.NewRegistry()
	if strat != nil {
		require.NoError(t, registry.Register(strat))
	}
	return NewRunner(eng, healing.NewCoordinator(registry, nil), cfg)
}

func TestRunner_PassFirstRun(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", pass())

	runner := newTestRunner(t, eng, &fixStrategy{succeed: true}, testConfig(config.TestSpec{ID: "a", Command: []string{"x"}}))
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)
	assert.False(t, reports[0].Healed)
	assert.Nil(t, reports[0].Failure)
	assert.Empty(t, reports[0].HealingAttempts)
}

func TestRunner_HealsAndRerunsUntilPass(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", fail(), pass())

	runner := newTestRunner(t, eng, &fixStrategy{succeed: true}, testConfig(config.TestSpec{ID: "a", Command: []string{"x"}}))
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.True(t, reports[0].Passed)
	assert.True(t, reports[0].Healed)
	require.Len(t, reports[0].HealingAttempts, 1)
	assert.True(t, reports[0].HealingAttempts[0].Success)
	assert.Equal(t, 2, eng.calls["a"])
}

func TestRunner_HealFailureStopsRetrying(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", fail())

	runner := newTestRunner(t, eng, &fixStrategy{succeed: false}, testConfig(config.TestSpec{ID: "a", Command: []string{"x"}}))
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.False(t, reports[0].Passed)
	require.NotNil(t, reports[0].Failure)
	require.Len(t, reports[0].HealingAttempts, 1)
	assert.Equal(t, 1, eng.calls["a"])
}

func TestRunner_BudgetBoundsHealRounds(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", fail()) // never passes

	cfg := testConfig(config.TestSpec{ID: "a", Command: []string{"x"}})
	cfg.Healing.MaxAttempts = 2

	runner := newTestRunner(t, eng, &fixStrategy{succeed: true}, cfg)
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	report := reports[0]
	assert.False(t, report.Passed)
	// Two successful heal rounds consume the budget; the third returns the
	// budget-exhausted result and the runner stops.
	require.Len(t, report.HealingAttempts, 3)
	assert.False(t, report.HealingAttempts[2].Success)
	assert.Equal(t, healing.MsgBudgetExhausted, report.HealingAttempts[2].Message)
	assert.Equal(t, 3, eng.calls["a"])
}

func TestRunner_HealingDisabled(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", fail())

	cfg := testConfig(config.TestSpec{ID: "a", Command: []string{"x"}})
	cfg.Healing.Enabled = false

	runner := newTestRunner(t, eng, &fixStrategy{succeed: true}, cfg)
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, reports[0].Passed)
	assert.Empty(t, reports[0].HealingAttempts)
	assert.Equal(t, 1, eng.calls["a"])
}

func TestRunner_ReportsKeepSuiteOrder(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", pass())
	eng.on("b", fail())
	eng.on("c", pass())

	cfg := testConfig(
		config.TestSpec{ID: "a", Command: []string{"x"}},
		config.TestSpec{ID: "b", Command: []string{"x"}},
		config.TestSpec{ID: "c", Command: []string{"x"}},
	)
	cfg.Healing.Enabled = false
	cfg.Suite.Parallelism = 3

	runner := newTestRunner(t, eng, nil, cfg)
	reports, err := runner.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{reports[0].TestID, reports[1].TestID, reports[2].TestID})
	assert.False(t, reports[1].Passed)
}

func TestRunner_Probe(t *testing.T) {
	eng := newScriptedEngine()
	eng.on("a", fail(), pass())

	runner := newTestRunner(t, eng, nil, testConfig(config.TestSpec{ID: "a", Command: []string{"x"}}))
	probe := runner.Probe()

	err := probe(context.Background(), healing.TestFailure{TestID: "a"})
	assert.Error(t, err)
	assert.NoError(t, probe(context.Background(), healing.TestFailure{TestID: "a"}))
	assert.Error(t, probe(context.Background(), healing.TestFailure{TestID: "missing"}))
}

func TestSummarize(t *testing.T) {
	reports := []TestReport{
		{TestID: "a", Passed: true},
		{TestID: "b", Passed: true, Healed: true},
		{TestID: "c"},
	}

	summary := Summarize(reports)
	assert.Equal(t, Summary{Total: 3, Passed: 2, Healed: 1, Failed: 1}, summary)
}

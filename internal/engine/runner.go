package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"mend/internal/config"
	"mend/internal/healing"
	"mend/internal/strategy"
	"mend/pkg/logging"
)

// TestReport is the final outcome of one test, including its healing history.
type TestReport struct {
	TestID   string
	Passed   bool
	Healed   bool
	Duration time.Duration
	Output   string
	// Failure is the last classified failure, nil when the test passed on
	// the first run.
	Failure *healing.TestFailure
	// HealingAttempts are the coordinator results in order, oldest first.
	HealingAttempts []healing.Result
}

// Summary aggregates a suite run.
type Summary struct {
	Total  int
	Passed int
	Healed int
	Failed int
}

// Summarize aggregates reports into suite-level counts. Healed tests also
// count as passed.
func Summarize(reports []TestReport) Summary {
	summary := Summary{Total: len(reports)}
	for _, report := range reports {
		if report.Passed {
			summary.Passed++
			if report.Healed {
				summary.Healed++
			}
		} else {
			summary.Failed++
		}
	}
	return summary
}

// Runner executes the suite with bounded parallelism and routes failures
// through the healing coordinator.
type Runner struct {
	engine      Engine
	coordinator *healing.Coordinator
	suite       config.SuiteConfig
	policy      healing.Config
	hctx        healing.Context
}

// NewRunner creates a suite runner. The healing context is derived from the
// operator preferences and the configured strategy restriction once, up
// front; per-test retry history is layered on per call.
func NewRunner(eng Engine, coordinator *healing.Coordinator, cfg *config.Config) *Runner {
	return &Runner{
		engine:      eng,
		coordinator: coordinator,
		suite:       cfg.Suite,
		policy:      cfg.Healing.ToHealing(),
		hctx: healing.Context{
			UserPreferences: healing.UserPreferences{
				PreferredStrategies: cfg.Preferences.PreferredStrategies,
				RiskTolerance:       healing.RiskTolerance(cfg.Preferences.RiskTolerance),
			},
			AvailableStrategies: cfg.Healing.Strategies,
		},
	}
}

// Run executes every test in the suite. The returned reports are in suite
// order. Run only fails on caller cancellation; individual test failures are
// reported, not returned as errors.
func (r *Runner) Run(ctx context.Context) ([]TestReport, error) {
	reports := make([]TestReport, len(r.suite.Tests))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(r.suite.Parallelism)
	for i, spec := range r.suite.Tests {
		group.Go(func() error {
			reports[i] = r.runOne(ctx, spec)
			return ctx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("suite run aborted: %w", err)
	}

	summary := Summarize(reports)
	logging.Info("Runner", "Suite finished: %d passed (%d healed), %d failed of %d",
		summary.Passed, summary.Healed, summary.Failed, summary.Total)
	return reports, nil
}

// runOne executes a single test, healing and re-running until it passes, a
// heal fails, or the coordinator's attempt budget runs out.
func (r *Runner) runOne(ctx context.Context, spec config.TestSpec) TestReport {
	report := TestReport{TestID: spec.ID}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	for {
		result := r.engine.Execute(ctx, spec)
		report.Output = result.Output

		if result.Passed {
			report.Passed = true
			report.Healed = len(report.HealingAttempts) > 0
			if report.Healed {
				logging.Info("Runner", "Test %s passed after healing (%d rounds)", spec.ID, len(report.HealingAttempts))
			}
			return report
		}

		failure := BuildFailure(spec, result, report.HealingAttempts)
		report.Failure = &failure

		if !r.policy.Enabled || ctx.Err() != nil {
			return report
		}

		hctx := r.hctx
		hctx.PreviousAttempts = report.HealingAttempts

		outcome := r.coordinator.Heal(ctx, failure, hctx, r.policy)
		report.HealingAttempts = append(report.HealingAttempts, outcome)
		if !outcome.Success {
			logging.Info("Runner", "Test %s not healed: %s", spec.ID, outcome.Message)
			return report
		}
		// Heal succeeded; re-run to confirm.
	}
}

// Probe returns a ProbeFunc that re-executes the failing test so strategies
// can check whether the failure was transient.
func (r *Runner) Probe() strategy.ProbeFunc {
	return func(ctx context.Context, failure healing.TestFailure) error {
		spec, ok := r.specFor(failure.TestID)
		if !ok {
			return fmt.Errorf("unknown test %q", failure.TestID)
		}
		return executionError(r.engine.Execute(ctx, spec))
	}
}

// SelectorProbe returns a probe that re-executes the failing test with the
// candidate selector exported as MEND_SELECTOR_OVERRIDE, so selector-aware
// test harnesses can pick it up.
func (r *Runner) SelectorProbe() strategy.SelectorProbe {
	return func(ctx context.Context, failure healing.TestFailure, selector string) error {
		spec, ok := r.specFor(failure.TestID)
		if !ok {
			return fmt.Errorf("unknown test %q", failure.TestID)
		}

		override := config.TestSpec{
			ID:      spec.ID,
			Command: spec.Command,
			Workdir: spec.Workdir,
			Env:     make(map[string]string, len(spec.Env)+1),
			Timeout: spec.Timeout,
		}
		for key, value := range spec.Env {
			override.Env[key] = value
		}
		override.Env["MEND_SELECTOR_OVERRIDE"] = selector

		return executionError(r.engine.Execute(ctx, override))
	}
}

func (r *Runner) specFor(testID string) (config.TestSpec, bool) {
	for _, spec := range r.suite.Tests {
		if spec.ID == testID {
			return spec, true
		}
	}
	return config.TestSpec{}, false
}

func executionError(result ExecutionResult) error {
	if result.Passed {
		return nil
	}
	if result.Err != nil {
		return result.Err
	}
	return fmt.Errorf("exit code %d: %s", result.ExitCode, failureMessage(result))
}

package healing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"mend/pkg/logging"
)

// MetricsSink receives healing observations for the observability layer.
// The coordinator calls it synchronously, so implementations must be cheap.
type MetricsSink interface {
	// ObserveAttempt records one strategy invocation and its raw outcome.
	ObserveAttempt(failureType FailureType, strategy string, success bool)
	// ObserveHeal records one completed Heal call.
	ObserveHeal(failureType FailureType, strategy string, success bool, duration time.Duration)
}

// NoOpMetrics is a MetricsSink that discards all observations.
type NoOpMetrics struct{}

func (NoOpMetrics) ObserveAttempt(FailureType, string, bool)             {}
func (NoOpMetrics) ObserveHeal(FailureType, string, bool, time.Duration) {}

// Coordinator orchestrates healing for a single test failure: it resolves
// the failure type, selects candidate strategies from the registry, invokes
// them sequentially under fault isolation, scores each attempt, aggregates a
// final Result, and updates the statistics tracker.
//
// Heal may be called from any number of goroutines concurrently; within one
// call, strategies run strictly sequentially because attempts may have
// ordering-sensitive side effects on the test environment.
type Coordinator struct {
	registry   *Registry
	classifier *Classifier
	scorer     *Scorer
	stats      *StatisticsTracker
	metrics    MetricsSink
}

// NewCoordinator creates a coordinator backed by the given registry.
// A nil metrics sink disables metrics.
func NewCoordinator(registry *Registry, metrics MetricsSink) *Coordinator {
	if metrics == nil {
		metrics = NoOpMetrics{}
	}
	return &Coordinator{
		registry:   registry,
		classifier: NewClassifier(),
		scorer:     NewScorer(),
		stats:      NewStatisticsTracker(),
		metrics:    metrics,
	}
}

// Stats returns a snapshot of the aggregate healing counters.
func (c *Coordinator) Stats() Stats {
	return c.stats.Stats()
}

// Registry returns the coordinator's strategy registry.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// scoredAttempt pairs one tried strategy with its aggregated score.
type scoredAttempt struct {
	strategy string
	attempt  AttemptResult
	score    float64
}

// Heal runs the healing pipeline for one failure. It never returns an error
// and never panics: every failure mode, including misbehaving strategies, is
// encoded in the returned Result so callers can proceed to their own failure
// path unconditionally. The statistics tracker is updated exactly once per
// call regardless of outcome.
//
// Cancellation of ctx is honored between strategy invocations; a strategy
// already in flight is bounded by cfg.Timeout instead.
func (c *Coordinator) Heal(ctx context.Context, failure TestFailure, hctx Context, cfg Config) Result {
	start := time.Now()
	cfg = cfg.Normalized()

	result := c.heal(ctx, failure, hctx, cfg)
	result.ID = uuid.NewString()
	result.Duration = time.Since(start)

	c.stats.RecordAttempt(result.Success)
	c.metrics.ObserveHeal(FailureType(result.Metadata[MetadataFailureType]),
		result.Metadata[MetadataStrategy], result.Success, result.Duration)

	logging.Debug("Coordinator", "Heal finished for test %s: success=%v confidence=%.3f strategy=%q duration=%s",
		failure.TestID, result.Success, result.Confidence, result.Metadata[MetadataStrategy], result.Duration)
	return result
}

func (c *Coordinator) heal(ctx context.Context, failure TestFailure, hctx Context, cfg Config) Result {
	failureType := c.classifier.Resolve(failure)
	metadata := map[string]string{MetadataFailureType: string(failureType)}

	candidates := c.registry.CandidatesFor(failureType, hctx)
	if len(candidates) == 0 {
		logging.Debug("Coordinator", "No applicable strategy for failure type %s (test %s)", failureType, failure.TestID)
		return Result{Success: false, Confidence: 0, Message: MsgNoApplicableStrategy, Metadata: metadata}
	}

	budget := cfg.MaxAttempts - len(failure.PreviousAttempts)
	if budget < 0 {
		budget = 0
	}
	if budget == 0 {
		logging.Debug("Coordinator", "Attempt budget exhausted for test %s (%d previous attempts, max %d)",
			failure.TestID, len(failure.PreviousAttempts), cfg.MaxAttempts)
		return Result{Success: false, Confidence: 0, Message: MsgBudgetExhausted, Metadata: metadata}
	}

	var tried []scoredAttempt
	for _, strategy := range candidates {
		if len(tried) >= budget {
			break
		}
		if err := ctx.Err(); err != nil {
			logging.Warn("Coordinator", "Healing of test %s cancelled after %d attempts: %v", failure.TestID, len(tried), err)
			break
		}

		attempt := c.invoke(ctx, strategy, failure, hctx, cfg.Timeout)
		score := c.scorer.Score(failureType, attempt.Confidence, attempt.Actions)
		c.metrics.ObserveAttempt(failureType, strategy.Name(), attempt.Success)
		tried = append(tried, scoredAttempt{strategy: strategy.Name(), attempt: attempt, score: score})

		logging.Debug("Coordinator", "Strategy %s attempt for test %s: success=%v declared=%.3f aggregated=%.3f",
			strategy.Name(), failure.TestID, attempt.Success, attempt.Confidence, score)

		// First attempt that both succeeded and cleared the threshold is
		// good enough; later candidates are never tried.
		if attempt.Success && score >= cfg.ConfidenceThreshold {
			break
		}
	}

	if len(tried) == 0 {
		return Result{Success: false, Confidence: 0, Message: MsgCancelled, Metadata: metadata}
	}

	// Highest aggregated confidence wins; ties prefer the earlier attempt,
	// which already encodes user preference order.
	best := tried[0]
	for _, candidate := range tried[1:] {
		if candidate.score > best.score {
			best = candidate
		}
	}

	metadata[MetadataStrategy] = best.strategy
	metadata[MetadataAttempts] = strconv.Itoa(len(tried))

	success := best.attempt.Success && best.score >= cfg.ConfidenceThreshold
	// A heal with no recorded actions cannot be trusted as a heal.
	if len(best.attempt.Actions) == 0 {
		success = false
	}

	message := best.attempt.Message
	if message == "" {
		if success {
			message = fmt.Sprintf("healed by strategy %s", best.strategy)
		} else {
			message = fmt.Sprintf("strategy %s did not produce a confident heal", best.strategy)
		}
	}

	return Result{
		Success:    success,
		Actions:    best.attempt.Actions,
		Confidence: best.score,
		Message:    message,
		Metadata:   metadata,
	}
}

// invoke runs one strategy under the per-attempt deadline with full fault
// isolation: a returned error, a panic, or a deadline overrun is converted
// into a synthetic failed attempt and never propagates. On timeout the
// strategy goroutine is left to drain; its context is cancelled so
// well-behaved strategies stop early.
func (c *Coordinator) invoke(ctx context.Context, strategy Strategy, failure TestFailure, hctx Context, timeout time.Duration) AttemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		attempt AttemptResult
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("strategy %s panicked: %v", strategy.Name(), r)}
			}
		}()
		attempt, err := strategy.Heal(attemptCtx, failure, hctx)
		done <- outcome{attempt: attempt, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			logging.Warn("Coordinator", "Strategy %s failed for test %s: %v", strategy.Name(), failure.TestID, out.err)
			return failedAttempt(out.err)
		}
		out.attempt.Confidence = clamp01(out.attempt.Confidence)
		return out.attempt
	case <-attemptCtx.Done():
		err := fmt.Errorf("strategy %s: %w", strategy.Name(), attemptCtx.Err())
		logging.Warn("Coordinator", "Strategy %s timed out after %s healing test %s", strategy.Name(), timeout, failure.TestID)
		return failedAttempt(err)
	}
}

// failedAttempt synthesizes the attempt recorded for a contained strategy
// failure (error, panic, or timeout).
func failedAttempt(cause error) AttemptResult {
	return AttemptResult{
		Success:    false,
		Confidence: 0,
		Message:    cause.Error(),
		Actions: []Action{{
			Type:      "error",
			Result:    ActionFailure,
			Timestamp: time.Now(),
			Message:   cause.Error(),
		}},
	}
}

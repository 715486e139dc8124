package strategy

import (
	"context"
	"fmt"
	"time"

	"mend/internal/healing"
	"mend/pkg/logging"
)

// ProbeFunc re-executes the failed operation so a strategy can check whether
// the failure was transient. Engines supply the probe; strategies decide
// when to call it. A nil error means the operation now passes.
type ProbeFunc func(ctx context.Context, failure healing.TestFailure) error

// Retry re-runs the failed operation a fixed number of times with a short
// pause in between. It is the cheapest strategy and the first resort for
// transient timeouts and flaky network calls.
type Retry struct {
	probe    ProbeFunc
	attempts int
	pause    time.Duration
}

// NewRetry creates the retry strategy with its default budget of two probes
// half a second apart.
func NewRetry(probe ProbeFunc) *Retry {
	return &Retry{probe: probe, attempts: 2, pause: 500 * time.Millisecond}
}

func (s *Retry) Name() string    { return "retry" }
func (s *Retry) Version() string { return "1.1.0" }

func (s *Retry) SupportedFailureTypes() []healing.FailureType {
	return []healing.FailureType{healing.FailureTimeout, healing.FailureNetwork, healing.FailureAssertion}
}

// Heal probes the failed operation up to the attempt budget. A high risk
// tolerance buys one extra probe; a low one halves the budget.
func (s *Retry) Heal(ctx context.Context, failure healing.TestFailure, hctx healing.Context) (healing.AttemptResult, error) {
	if s.probe == nil {
		return healing.AttemptResult{}, fmt.Errorf("retry strategy has no probe")
	}

	attempts := s.attempts
	switch hctx.UserPreferences.RiskTolerance {
	case healing.RiskHigh:
		attempts++
	case healing.RiskLow:
		if attempts > 1 {
			attempts /= 2
		}
	}

	var actions []healing.Action
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return healing.AttemptResult{Success: false, Actions: actions, Message: ctx.Err().Error()}, nil
			case <-time.After(s.pause):
			}
		}

		err := s.probe(ctx, failure)
		action := healing.Action{
			Type:        "retry",
			Description: fmt.Sprintf("re-run attempt %d/%d", i+1, attempts),
			Parameters:  map[string]interface{}{"attempt": i + 1, "pause": s.pause.String()},
			Timestamp:   time.Now(),
		}
		if err == nil {
			action.Result = healing.ActionSuccess
			actions = append(actions, action)
			logging.Debug("Strategy", "retry: test %s recovered on attempt %d/%d", failure.TestID, i+1, attempts)
			return healing.AttemptResult{
				Success:    true,
				Confidence: 0.55,
				Actions:    actions,
				Message:    fmt.Sprintf("operation passed on retry %d", i+1),
			}, nil
		}
		action.Result = healing.ActionFailure
		action.Message = err.Error()
		actions = append(actions, action)
	}

	return healing.AttemptResult{
		Success:    false,
		Confidence: 0.1,
		Actions:    actions,
		Message:    fmt.Sprintf("still failing after %d retries", attempts),
	}, nil
}

package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mend/internal/healing"
	"mend/pkg/logging"
)

// BackoffAdjust retries the failed operation under an exponential backoff
// schedule. Where plain retry hammers immediately, this strategy assumes the
// environment needs breathing room (an overloaded service, a rate limiter, a
// slow render) and widens the interval on every probe.
type BackoffAdjust struct {
	probe           ProbeFunc
	initialInterval time.Duration
	maxInterval     time.Duration
	maxTries        uint
}

// NewBackoffAdjust creates the backoff strategy with its default schedule.
func NewBackoffAdjust(probe ProbeFunc) *BackoffAdjust {
	return &BackoffAdjust{
		probe:           probe,
		initialInterval: 250 * time.Millisecond,
		maxInterval:     5 * time.Second,
		maxTries:        4,
	}
}

func (s *BackoffAdjust) Name() string    { return "backoff-adjust" }
func (s *BackoffAdjust) Version() string { return "1.2.0" }

func (s *BackoffAdjust) SupportedFailureTypes() []healing.FailureType {
	return []healing.FailureType{healing.FailureTimeout, healing.FailureNetwork}
}

// Heal probes under exponential backoff until the operation passes, the
// schedule is exhausted, or ctx expires.
func (s *BackoffAdjust) Heal(ctx context.Context, failure healing.TestFailure, hctx healing.Context) (healing.AttemptResult, error) {
	if s.probe == nil {
		return healing.AttemptResult{}, fmt.Errorf("backoff-adjust strategy has no probe")
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.initialInterval
	expo.MaxInterval = s.maxInterval
	expo.Multiplier = 2.0

	var actions []healing.Action
	probes := 0
	operation := func() (struct{}, error) {
		probes++
		err := s.probe(ctx, failure)
		action := healing.Action{
			Type:        "backoff_retry",
			Description: fmt.Sprintf("backoff probe %d/%d", probes, s.maxTries),
			Parameters:  map[string]interface{}{"probe": probes, "initialInterval": s.initialInterval.String()},
			Timestamp:   time.Now(),
		}
		if err != nil {
			action.Result = healing.ActionFailure
			action.Message = err.Error()
			actions = append(actions, action)
			return struct{}{}, err
		}
		action.Result = healing.ActionSuccess
		actions = append(actions, action)
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(s.maxTries),
	)
	if err != nil {
		logging.Debug("Strategy", "backoff-adjust: test %s still failing after %d probes: %v", failure.TestID, probes, err)
		return healing.AttemptResult{
			Success:    false,
			Confidence: 0.15,
			Actions:    actions,
			Message:    fmt.Sprintf("still failing after %d backoff probes", probes),
		}, nil
	}

	return healing.AttemptResult{
		Success:    true,
		Confidence: 0.75,
		Actions:    actions,
		Message:    fmt.Sprintf("operation passed on backoff probe %d", probes),
	}, nil
}

package strategy

import (
	"context"
	"fmt"
	"time"

	"mend/internal/healing"
	"mend/pkg/logging"
)

// WaitForElement handles late-rendering pages: the element exists, it just
// was not there yet when the test looked. The strategy waits in widening
// stages and probes after each one.
type WaitForElement struct {
	probe  ProbeFunc
	stages []time.Duration
}

// NewWaitForElement creates the staged-wait strategy with its default
// schedule.
func NewWaitForElement(probe ProbeFunc) *WaitForElement {
	return &WaitForElement{
		probe:  probe,
		stages: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second},
	}
}

func (s *WaitForElement) Name() string    { return "wait-for-element" }
func (s *WaitForElement) Version() string { return "1.0.0" }

func (s *WaitForElement) SupportedFailureTypes() []healing.FailureType {
	return []healing.FailureType{healing.FailureElementNotFound, healing.FailureTimeout}
}

// Heal waits through the stage schedule, probing after each pause. A low
// risk tolerance drops the longest stage.
func (s *WaitForElement) Heal(ctx context.Context, failure healing.TestFailure, hctx healing.Context) (healing.AttemptResult, error) {
	if s.probe == nil {
		return healing.AttemptResult{}, fmt.Errorf("wait-for-element strategy has no probe")
	}

	stages := s.stages
	if hctx.UserPreferences.RiskTolerance == healing.RiskLow && len(stages) > 1 {
		stages = stages[:len(stages)-1]
	}

	var actions []healing.Action
	for i, stage := range stages {
		select {
		case <-ctx.Done():
			return healing.AttemptResult{Success: false, Actions: actions, Message: ctx.Err().Error()}, nil
		case <-time.After(stage):
		}

		err := s.probe(ctx, failure)
		action := healing.Action{
			Type:        "wait_for_element",
			Description: fmt.Sprintf("wait stage %d/%d (%s)", i+1, len(stages), stage),
			Parameters:  map[string]interface{}{"stage": i + 1, "waited": stage.String()},
			Timestamp:   time.Now(),
		}
		if err == nil {
			action.Result = healing.ActionSuccess
			actions = append(actions, action)
			logging.Debug("Strategy", "wait-for-element: test %s stabilized after stage %d (%s)", failure.TestID, i+1, stage)
			return healing.AttemptResult{
				Success:    true,
				Confidence: 0.6,
				Actions:    actions,
				Message:    fmt.Sprintf("element appeared after waiting %s", stage),
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
		Message:    fmt.Sprintf("element still missing after %d wait stages", len(stages)),
	}, nil
}

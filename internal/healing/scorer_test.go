package healing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func successAction() Action {
	return Action{Type: "retry", Result: ActionSuccess, Timestamp: time.Now()}
}

func failedAction() Action {
	return Action{Type: "retry", Result: ActionFailure, Timestamp: time.Now()}
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer()

	tests := []struct {
		name        string
		failureType FailureType
		declared    float64
		actions     []Action
		want        float64
	}{
		{"timeout blend", FailureTimeout, 0.75, []Action{successAction()}, 0.625},
		{"element baseline", FailureElementNotFound, 0.6, nil, 0.6},
		{"network baseline", FailureNetwork, 0.4, nil, 0.4},
		{"unknown baseline", FailureUnknown, 0.3, nil, 0.3},
		{"assertion blend", FailureAssertion, 1.0, nil, 0.75},
		{"single successful action no bonus", FailureTimeout, 0.5, []Action{successAction()}, 0.5},
		{"second successful action adds bonus", FailureTimeout, 0.5, []Action{successAction(), successAction()}, 0.6},
		{"bonus capped at 0.2", FailureTimeout, 0.5, []Action{
			successAction(), successAction(), successAction(), successAction(), successAction(), successAction(),
		}, 0.7},
		{"failed actions earn no bonus", FailureTimeout, 0.5, []Action{successAction(), failedAction(), failedAction()}, 0.5},
		{"declared clamped low", FailureTimeout, -3, nil, 0.25},
		{"declared clamped high", FailureTimeout, 7, []Action{successAction()}, 0.75},
		{"result clipped to one", FailureElementNotFound, 1.0, []Action{
			successAction(), successAction(), successAction(),
		}, 1.0},
		{"unregistered type falls back to unknown baseline", FailureType("weird"), 0.3, nil, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.failureType, tt.declared, tt.actions)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := NewScorer()
	actions := []Action{successAction(), successAction()}

	first := scorer.Score(FailureTimeout, 0.42, actions)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, scorer.Score(FailureTimeout, 0.42, actions))
	}
}

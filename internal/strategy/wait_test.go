package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mend/internal/healing"
)

func shortStages(s *WaitForElement) {
	s.stages = []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
}

func TestWaitForElement_ElementAppears(t *testing.T) {
	probe, calls := flakyProbe(1)
	wait := NewWaitForElement(probe)
	shortStages(wait)

	attempt, err := wait.Heal(context.Background(), timeoutFailure(), healing.Context{})
	require.NoError(t, err)

	assert.True(t, attempt.Success)
	assert.InDelta(t, 0.6, attempt.Confidence, 1e-9)
	assert.Equal(t, 2, *calls)
	require.Len(t, attempt.Actions, 2)
	assert.Equal(t, "wait_for_element", attempt.Actions[0].Type)
	assert.Equal(t, healing.ActionSuccess, attempt.Actions[1].Result)
}

func TestWaitForElement_ExhaustsStages(t *testing.T) {
	probe, calls := flakyProbe(100)
	wait := NewWaitForElement(probe)
	shortStages(wait)

	attempt, err := wait.Heal(context.Background(), timeoutFailure(), healing.Context{})
	require.NoError(t, err)

	assert.False(t, attempt.Success)
	assert.Equal(t, 3, *calls)
}

func TestWaitForElement_LowRiskDropsLongestStage(t *testing.T) {
	probe, calls := flakyProbe(100)
	wait := NewWaitForElement(probe)
	shortStages(wait)

	hctx := healing.Context{UserPreferences: healing.UserPreferences{RiskTolerance: healing.RiskLow}}
	_, err := wait.Heal(context.Background(), timeoutFailure(), hctx)
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
}

func TestWaitForElement_HonorsCancellation(t *testing.T) {
	probe, calls := flakyProbe(100)
	wait := NewWaitForElement(probe)
	wait.stages = []time.Duration{50 * time.Millisecond, time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempt, err := wait.Heal(ctx, timeoutFailure(), healing.Context{})
	require.NoError(t, err)
	assert.False(t, attempt.Success)
	assert.Equal(t, 0, *calls)
}

func TestWaitForElement_WithoutProbe(t *testing.T) {
	wait := NewWaitForElement(nil)
	_, err := wait.Heal(context.Background(), timeoutFailure(), healing.Context{})
	assert.Error(t, err)
}

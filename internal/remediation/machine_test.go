package remediation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineFullPath(t *testing.T) {
	m := NewMachine()
	var seen []State
	m.Observe(func(tr Transition) { seen = append(seen, tr.To) })

	for _, s := range []State{StateUploading, StateAnalyzed, StateDownloading, StateDownloaded, StateRechecking, StateReconciled} {
		require.NoError(t, m.To(s), s)
	}
	assert.Equal(t, StateReconciled, m.State())
	assert.Equal(t, []State{StateUploading, StateAnalyzed, StateDownloading, StateDownloaded, StateRechecking, StateReconciled}, seen)

	hist := m.History()
	require.Len(t, hist, 6)
	assert.Equal(t, StateIdle, hist[0].From)
	assert.False(t, hist[0].At.IsZero())
}

func TestMachineRejectsIllegalTransitions(t *testing.T) {
	m := NewMachine()
	err := m.To(StateDownloading)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateIdle, m.State())

	require.NoError(t, m.To(StateUploading))
	require.NoError(t, m.To(StateAnalyzed))
	require.NoError(t, m.To(StateReconciled))
	assert.ErrorIs(t, m.To(StateDownloading), ErrInvalidTransition)
	assert.ErrorIs(t, m.Fail(errors.New("late")), ErrInvalidTransition)
}

func TestMachineFailRecordsCauseAndAllowsRetry(t *testing.T) {
	m := RestoreMachine(StateDownloading)
	require.NoError(t, m.Fail(errors.New("backend down")))
	assert.Equal(t, StateFailed, m.State())
	assert.Equal(t, "backend down", m.History()[0].Error)

	require.NoError(t, m.To(StateDownloading))
	assert.ErrorIs(t, m.To(StateReconciled), ErrInvalidTransition)
}

func TestMachineObserverCanReadState(t *testing.T) {
	m := NewMachine()
	m.Observe(func(Transition) {
		// must not deadlock
		assert.Equal(t, StateUploading, m.State())
	})
	require.NoError(t, m.To(StateUploading))
}

func TestRestoreMachineDefaultsToIdle(t *testing.T) {
	assert.Equal(t, StateIdle, RestoreMachine("").State())
	assert.True(t, CanTransition(StateAnalyzed, StateReconciled))
	assert.False(t, CanTransition(StateReconciled, StateAnalyzed))
}

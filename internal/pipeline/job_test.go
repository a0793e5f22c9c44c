package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJob_HappyPath(t *testing.T) {
	j := newJob("fp")
	assert.Equal(t, JobQueued, j.State())

	for _, next := range []JobState{JobRendering, JobProcessing, JobAssembling, JobCompleted} {
		require.NoError(t, j.transition(next))
		assert.Equal(t, next, j.State())
	}
	assert.True(t, j.State().IsTerminal())
}

func TestJob_InvalidTransitions(t *testing.T) {
	t.Run("skip a phase", func(t *testing.T) {
		j := newJob("fp")
		assert.Error(t, j.transition(JobProcessing))
		assert.Equal(t, JobQueued, j.State(), "failed transition must not change state")
	})

	t.Run("out of terminal state", func(t *testing.T) {
		j := newJob("fp")
		require.NoError(t, j.transition(JobRendering))
		require.NoError(t, j.transition(JobCancelled))
		assert.Error(t, j.transition(JobProcessing))
	})

	t.Run("completion requires assembling", func(t *testing.T) {
		j := newJob("fp")
		require.NoError(t, j.transition(JobRendering))
		assert.Error(t, j.transition(JobCompleted))
	})
}

func TestJob_CancellableFromEveryActivePhase(t *testing.T) {
	for _, phase := range []JobState{JobQueued, JobRendering, JobProcessing, JobAssembling} {
		t.Run(string(phase), func(t *testing.T) {
			j := newJob("fp")
			for _, step := range []JobState{JobRendering, JobProcessing, JobAssembling} {
				if j.State() == phase {
					break
				}
				require.NoError(t, j.transition(step))
			}
			require.NoError(t, j.transition(JobCancelled))
			assert.True(t, j.State().IsTerminal())
		})
	}
}

func TestJobState_IsTerminal(t *testing.T) {
	terminal := []JobState{JobCompleted, JobPartialSuccess, JobFailed, JobCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), s)
	}
	active := []JobState{JobQueued, JobRendering, JobProcessing, JobAssembling}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), s)
	}
}

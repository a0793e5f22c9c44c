package pipeline

import (
	"fmt"
	"sync"
)

// JobState tracks one submission through the orchestrator. Terminal states
// have no outgoing transitions.
type JobState string

const (
	JobQueued         JobState = "queued"
	JobRendering      JobState = "rendering"
	JobProcessing     JobState = "processing"
	JobAssembling     JobState = "assembling"
	JobCompleted      JobState = "completed"
	JobPartialSuccess JobState = "partial_success"
	JobFailed         JobState = "failed"
	JobCancelled      JobState = "cancelled"
)

// jobTransitions is the allowed state graph.
var jobTransitions = map[JobState][]JobState{
	JobQueued:     {JobRendering, JobFailed, JobCancelled},
	JobRendering:  {JobProcessing, JobFailed, JobCancelled},
	JobProcessing: {JobAssembling, JobFailed, JobCancelled},
	JobAssembling: {JobCompleted, JobPartialSuccess, JobFailed, JobCancelled},
}

// IsTerminal reports whether the state has no outgoing transitions.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobCompleted, JobPartialSuccess, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is the in-flight unit of work tying a document and render config to a
// running pipeline instance. It is owned exclusively by the orchestrator
// for its lifetime and exists only for bookkeeping and progress reporting.
type Job struct {
	Fingerprint string

	mu    sync.Mutex
	state JobState
}

func newJob(fingerprint string) *Job {
	return &Job{Fingerprint: fingerprint, state: JobQueued}
}

// State returns the current job state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// transition moves the job to next, enforcing the state graph.
func (j *Job) transition(next JobState) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, allowed := range jobTransitions[j.state] {
		if allowed == next {
			j.state = next
			return nil
		}
	}
	return fmt.Errorf("invalid job transition %s -> %s", j.state, next)
}

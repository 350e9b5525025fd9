// Package job holds the retry, lease, and notification policies applied to queued jobs.
package job

import (
	"math"
	"time"

	"github.com/target/queuectl/internal/domain/model"
)

// maxBackoff is the largest delay representable as a time.Duration.
const maxBackoff = time.Duration(math.MaxInt64)

// Backoff returns base^attempts seconds. There is no jitter and no cap; the
// result only saturates when it would overflow time.Duration.
func Backoff(base, attempts int) time.Duration {
	if attempts <= 0 {
		return time.Second
	}
	if base <= 1 {
		if base == 1 {
			return time.Second
		}
		return 0
	}

	limit := int64(maxBackoff / time.Second)
	seconds := int64(1)
	for range attempts {
		if seconds > limit/int64(base) {
			return maxBackoff
		}
		seconds *= int64(base)
	}
	return time.Duration(seconds) * time.Second
}

// FailureDecision is the outcome of recording one failed execution.
type FailureDecision struct {
	State    model.JobState
	Attempts int
	// RunAt is set only when the job goes back to pending.
	RunAt *time.Time
	Delay time.Duration
}

// Dead reports whether the job moves to the dead letter queue.
func (d FailureDecision) Dead() bool {
	return d.State == model.JobStateDead
}

// FailureInput groups the values DecideFailure needs.
type FailureInput struct {
	// State is the job's current state; failures only apply to processing jobs.
	State       model.JobState
	Attempts    int
	MaxRetries  int
	BackoffBase int
	Now         time.Time
}

// DecideFailure increments attempts and picks the next state: dead once attempts
// exceeds max_retries, otherwise pending again after base^attempts seconds.
// It returns model.ErrInvalidTransition when the job is not processing.
func DecideFailure(in FailureInput) (FailureDecision, error) {
	attempts := in.Attempts + 1
	if attempts > in.MaxRetries {
		state, err := model.Transition(in.State, model.EventFailDead)
		if err != nil {
			return FailureDecision{}, err
		}
		return FailureDecision{State: state, Attempts: attempts}, nil
	}

	state, err := model.Transition(in.State, model.EventFailRetry)
	if err != nil {
		return FailureDecision{}, err
	}
	delay := Backoff(in.BackoffBase, attempts)
	runAt := in.Now.Add(delay)
	return FailureDecision{
		State:    state,
		Attempts: attempts,
		RunAt:    &runAt,
		Delay:    delay,
	}, nil
}

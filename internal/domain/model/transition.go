package model

import (
	"errors"
	"fmt"
)

// JobEvent names a lifecycle event that moves a job between states.
type JobEvent string

const (
	// EventAcquire is a worker winning the lease on a pending job.
	EventAcquire JobEvent = "acquire"
	// EventComplete is a successful execution.
	EventComplete JobEvent = "complete"
	// EventFailRetry is a failed execution with retry budget remaining.
	EventFailRetry JobEvent = "fail_retry"
	// EventFailDead is a failed execution that exhausted the retry budget.
	EventFailDead JobEvent = "fail_dead"
	// EventLeaseStale is the stale-lease sweep reclaiming an abandoned job.
	EventLeaseStale JobEvent = "lease_stale"
	// EventManualRetry is an operator moving a dead job back to the queue.
	EventManualRetry JobEvent = "manual_retry"
)

// ErrInvalidTransition is returned when an event does not apply to the current state.
var ErrInvalidTransition = errors.New("invalid job state transition")

type transitionKey struct {
	from  JobState
	event JobEvent
}

var transitions = map[transitionKey]JobState{
	{JobStatePending, EventAcquire}:       JobStateProcessing,
	{JobStateProcessing, EventComplete}:   JobStateCompleted,
	{JobStateProcessing, EventFailRetry}:  JobStatePending,
	{JobStateProcessing, EventFailDead}:   JobStateDead,
	{JobStateProcessing, EventLeaseStale}: JobStatePending,
	{JobStateDead, EventManualRetry}:      JobStatePending,
}

// Transition returns the state an event leads to from the given state.
func Transition(from JobState, event JobEvent) (JobState, error) {
	to, ok := transitions[transitionKey{from: from, event: event}]
	if !ok {
		return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, event, from)
	}
	return to, nil
}

// MustTransition is Transition for pairs fixed at compile time, such as the
// states a store statement moves rows between. It panics on an unknown pair.
func MustTransition(from JobState, event JobEvent) JobState {
	to, err := Transition(from, event)
	if err != nil {
		//nolint:forbidigo // a missing table entry is a programming error caught at package init
		panic(err)
	}
	return to
}

// Terminal reports whether the state is eligible for retention cleanup.
// Dead jobs are kept for operator inspection until retried.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted
}

// TerminalStates lists the states retention cleanup may delete.
func TerminalStates() []JobState {
	var out []JobState
	for _, s := range AllJobStates {
		if s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

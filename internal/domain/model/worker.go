package model

import (
	"fmt"
	"strings"
	"time"
)

// WorkerInfo describes a running worker as published to the worker registry.
type WorkerInfo struct {
	ID        string    `json:"id"                   yaml:"id"`
	Hostname  string    `json:"hostname"             yaml:"hostname"`
	PID       int       `json:"pid"                  yaml:"pid"`
	StartedAt time.Time `json:"started_at"           yaml:"started_at"`
	LastSeen  time.Time `json:"last_seen"            yaml:"last_seen"`
	JobID     string    `json:"job_id,omitempty"     yaml:"job_id,omitempty"`
}

// Busy reports whether the worker was executing a job at its last heartbeat.
func (w *WorkerInfo) Busy() bool {
	return w != nil && strings.TrimSpace(w.JobID) != ""
}

// ExecutionResult is the outcome of running one job command.
type ExecutionResult struct {
	Success  bool
	ExitCode int
	// Output is the captured standard output, set on success.
	Output string
	// Error is the failure message recorded with FailJob.
	Error    string
	TimedOut bool
	Duration time.Duration
}

// Err returns nil for a successful run, otherwise the failure message wrapped
// in ErrTimeoutExceeded or ErrExecutionFailure.
func (r ExecutionResult) Err() error {
	switch {
	case r.Success:
		return nil
	case r.TimedOut:
		return fmt.Errorf("%w: %s", ErrTimeoutExceeded, r.Error)
	default:
		return fmt.Errorf("%w: %s", ErrExecutionFailure, r.Error)
	}
}

// QueueStatus is the summary printed by the status command.
type QueueStatus struct {
	Jobs          JobStats `json:"jobs"           yaml:"jobs"`
	ActiveWorkers int      `json:"active_workers" yaml:"active_workers"`
	// WorkersTracked is false when no worker registry is configured. ActiveWorkers is then zero.
	WorkersTracked bool         `json:"workers_tracked"   yaml:"workers_tracked"`
	Workers        []WorkerInfo `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Package model defines the core data types shared by the queuectl store, workers, and CLI.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobState represents the lifecycle state of a job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobStatePending indicates a job is waiting to be leased. A pending job with a future
	// run_at is deferred (waiting out a retry backoff or a scheduled start).
	JobStatePending JobState = "pending"
	// JobStateProcessing indicates a worker holds the lease and is executing the job.
	JobStateProcessing JobState = "processing"
	// JobStateCompleted indicates the command exited successfully.
	JobStateCompleted JobState = "completed"
	// JobStateDead indicates the job exhausted its retries and sits in the dead letter queue.
	JobStateDead JobState = "dead"
)

// AllJobStates lists every state in lifecycle order.
var AllJobStates = []JobState{
	JobStatePending,
	JobStateProcessing,
	JobStateCompleted,
	JobStateDead,
}

// Valid returns true if the JobState is one of the known states.
func (s JobState) Valid() bool {
	return s == JobStatePending || s == JobStateProcessing || s == JobStateCompleted || s == JobStateDead
}

func (s JobState) String() string {
	return string(s)
}

// UnmarshalText implements encoding.TextUnmarshaler so states can be parsed from flags and env.
func (s *JobState) UnmarshalText(text []byte) error {
	v := JobState(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid job state: %q", string(text))
	}
	*s = v
	return nil
}

// ParseJobState parses a user-supplied state name.
func ParseJobState(raw string) (JobState, error) {
	var s JobState
	if err := s.UnmarshalText([]byte(raw)); err != nil {
		return "", err
	}
	return s, nil
}

// Sentinel errors for store and executor outcomes.
var (
	// ErrNoJobsAvailable is returned when no job is eligible for leasing.
	ErrNoJobsAvailable = errors.New("no jobs available")
	// ErrDuplicateID is returned when a job is created with an id that already exists.
	ErrDuplicateID = errors.New("duplicate job id")
	// ErrJobNotFound is returned when an operation references an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrNotInDLQ is returned when a retry is requested for a job that is not dead.
	ErrNotInDLQ = errors.New("job is not in the dead letter queue")
	// ErrExecutionFailure marks a command that could not be launched or exited non-zero.
	ErrExecutionFailure = errors.New("execution failure")
	// ErrTimeoutExceeded marks a command that ran past its timeout.
	ErrTimeoutExceeded = errors.New("timeout exceeded")
)

// Job represents a queued shell command with its lease and retry bookkeeping.
type Job struct {
	ID             string     `json:"id"                yaml:"id"                db:"id"`
	Command        string     `json:"command"           yaml:"command"           db:"command"`
	State          JobState   `json:"state"             yaml:"state"             db:"state"`
	Attempts       int        `json:"attempts"          yaml:"attempts"          db:"attempts"`
	MaxRetries     int        `json:"max_retries"       yaml:"max_retries"       db:"max_retries"`
	CreatedAt      time.Time  `json:"created_at"        yaml:"created_at"        db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"        yaml:"updated_at"        db:"updated_at"`
	RunAt          *time.Time `json:"run_at,omitempty"  yaml:"run_at,omitempty"  db:"run_at"`
	TimeoutSeconds *int       `json:"timeout,omitempty" yaml:"timeout,omitempty" db:"timeout_seconds"`
	LockedBy       *string    `json:"locked_by,omitempty" yaml:"locked_by,omitempty" db:"locked_by"`
	LockedAt       *time.Time `json:"locked_at,omitempty" yaml:"locked_at,omitempty" db:"locked_at"`
	Error          *string    `json:"error,omitempty"   yaml:"error,omitempty"   db:"error"`
	Output         *string    `json:"output,omitempty"  yaml:"output,omitempty"  db:"output"`
}

// Deferred reports whether a pending job is still waiting for its run_at.
func (j *Job) Deferred(now time.Time) bool {
	if j == nil || j.State != JobStatePending || j.RunAt == nil {
		return false
	}
	return now.Before(*j.RunAt)
}

// Leased reports whether the job currently carries lease fields.
func (j *Job) Leased() bool {
	return j != nil && j.LockedBy != nil && j.LockedAt != nil
}

// Timeout returns the execution timeout, or zero when the job has none.
func (j *Job) Timeout() time.Duration {
	if j == nil || j.TimeoutSeconds == nil || *j.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(*j.TimeoutSeconds) * time.Second
}

// CreateJobRequest represents a request to enqueue a new job.
type CreateJobRequest struct {
	ID             string     `json:"id,omitempty"`
	Command        string     `json:"command"`
	MaxRetries     *int       `json:"max_retries,omitempty"`
	RunAt          *time.Time `json:"run_at,omitempty"`
	TimeoutSeconds *int       `json:"timeout,omitempty"`
}

// Validate validates the CreateJobRequest fields.
func (r *CreateJobRequest) Validate() error {
	if r == nil {
		return errors.New("create job request is required")
	}
	if strings.TrimSpace(r.Command) == "" {
		return errors.New("command is required")
	}
	if r.MaxRetries != nil && *r.MaxRetries < 0 {
		return errors.New("max retries must be >= 0")
	}
	if r.TimeoutSeconds != nil && *r.TimeoutSeconds <= 0 {
		return errors.New("timeout must be a positive number of seconds")
	}
	return nil
}

// JobListOptions filters ListJobs.
type JobListOptions struct {
	State *JobState
	Limit int
}

// JobStats holds job counts per state. Deferred is the subset of Pending waiting on run_at.
type JobStats struct {
	Pending    int `json:"pending"    yaml:"pending"`
	Deferred   int `json:"deferred"   yaml:"deferred"`
	Processing int `json:"processing" yaml:"processing"`
	Completed  int `json:"completed"  yaml:"completed"`
	Dead       int `json:"dead"       yaml:"dead"`
}

// ByState returns the counts keyed by state.
func (s *JobStats) ByState() map[JobState]int {
	if s == nil {
		return map[JobState]int{}
	}
	return map[JobState]int{
		JobStatePending:    s.Pending,
		JobStateProcessing: s.Processing,
		JobStateCompleted:  s.Completed,
		JobStateDead:       s.Dead,
	}
}

// Total returns the number of jobs across all states.
func (s *JobStats) Total() int {
	if s == nil {
		return 0
	}
	return s.Pending + s.Processing + s.Completed + s.Dead
}

// Package metrics defines the metric names and tags queuectl emits.
package metrics

import (
	"time"

	"github.com/target/queuectl/internal/domain/model"
	obserrors "github.com/target/queuectl/internal/observability/errors"
	"github.com/target/queuectl/internal/observability/statsd"
)

// Metric names shared by every Sink implementation.
const (
	JobTransition = "job.transition"
	JobDuration   = "job.duration"
	QueueDepth    = "queue.depth"
	WorkersActive = "workers.active"
	LeasesStale   = "leases.released"
	JobsCleaned   = "jobs.cleaned"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Transition tags.
const (
	TransitionAcquired  = "acquired"
	TransitionCompleted = "completed"
	TransitionRetried   = "retried"
	TransitionDead      = "dead"
	TransitionReleased  = "released"
)

// JobMetric captures one job lifecycle event.
type JobMetric struct {
	Transition string
	Result     string
	WorkerID   string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle counts the transition and, when a duration is set, records its timing.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.WorkerID != "" {
		tags["worker_id"] = in.WorkerID
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(JobTransition, 1, tags)
	if in.Duration > 0 {
		sink.Timing(JobDuration, in.Duration, CloneTags(tags))
	}
}

// FailureTransition picks the tag for a FailJob outcome.
func FailureTransition(job *model.Job) string {
	if job != nil && job.State == model.JobStateDead {
		return TransitionDead
	}
	return TransitionRetried
}

// EmitQueueDepth publishes one gauge per state, plus the deferred subset of pending.
func EmitQueueDepth(sink statsd.Sink, stats *model.JobStats) {
	if sink == nil || stats == nil {
		return
	}
	for state, n := range stats.ByState() {
		sink.Gauge(QueueDepth, float64(n), map[string]string{"state": string(state)})
	}
	sink.Gauge(QueueDepth, float64(stats.Deferred), map[string]string{"state": "deferred"})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

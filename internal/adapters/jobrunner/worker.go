// Package jobrunner runs queue workers: the per-worker poll loop and the pool that starts and stops them.
package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/target/queuectl/internal/core"
	domainjob "github.com/target/queuectl/internal/domain/job"
	"github.com/target/queuectl/internal/domain/model"
	"github.com/target/queuectl/internal/observability/metrics"
	"github.com/target/queuectl/internal/observability/statsd"
)

// Worker loop defaults.
const (
	DefaultPollInterval      = time.Second
	DefaultErrorBackoff      = 5 * time.Second
	DefaultHeartbeatInterval = 10 * time.Second
)

// WorkerOptions configures a Worker.
type WorkerOptions struct {
	ID       string
	Store    core.JobStore
	Executor core.CommandExecutor

	// Optional collaborators.
	Registry core.WorkerRegistry
	Notifier domainjob.Notifier
	Metrics  statsd.Sink
	Logger   *slog.Logger

	PollInterval      time.Duration
	ErrorBackoff      time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
}

// Worker leases and runs one job at a time until stopped.
type Worker struct {
	id       string
	store    core.JobStore
	executor core.CommandExecutor
	registry core.WorkerRegistry
	notifier domainjob.Notifier
	metrics  statsd.Sink
	logger   *slog.Logger

	pollInterval      time.Duration
	errorBackoff      time.Duration
	heartbeatInterval time.Duration
	staleAfter        time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu   sync.Mutex
	info model.WorkerInfo
}

// NewWorker validates opts and fills in defaults.
func NewWorker(opts WorkerOptions) (*Worker, error) {
	if opts.ID == "" {
		return nil, errors.New("worker ID is required")
	}
	if opts.Store == nil {
		return nil, errors.New("job store is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("command executor is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy, err := domainjob.NewLeasePolicy(domainjob.DefaultStaleAfter)
	if err != nil {
		return nil, err
	}
	lease := policy.Resolve(opts.StaleAfter)
	if lease.Clamped() {
		logger.Warn("stale-after below minimum, clamped",
			"worker_id", opts.ID, "requested", opts.StaleAfter, "stale_after", lease.StaleAfter)
	}
	hostname, _ := os.Hostname()

	return &Worker{
		id:                opts.ID,
		store:             opts.Store,
		executor:          opts.Executor,
		registry:          opts.Registry,
		notifier:          opts.Notifier,
		metrics:           opts.Metrics,
		logger:            logger.With("component", "worker", "worker_id", opts.ID),
		pollInterval:      durationOr(opts.PollInterval, DefaultPollInterval),
		errorBackoff:      durationOr(opts.ErrorBackoff, DefaultErrorBackoff),
		heartbeatInterval: durationOr(opts.HeartbeatInterval, DefaultHeartbeatInterval),
		staleAfter:        lease.StaleAfter,
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
		info: model.WorkerInfo{
			ID:       opts.ID,
			Hostname: hostname,
			PID:      os.Getpid(),
		},
	}, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// ID returns the worker id recorded as the lease holder.
func (w *Worker) ID() string { return w.id }

// Stop asks the worker to exit after its current step. It does not interrupt a running command.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) stopping() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

// Run loops until Stop is called or ctx is cancelled. Cancelling ctx is the
// forced stop: it kills a running command and abandons its lease, which the
// stale sweep later returns to pending.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)

	w.logger.InfoContext(ctx, "worker started", "stale_after", w.staleAfter, "poll_interval", w.pollInterval)
	w.register(ctx)
	defer w.deregister()

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	hbDone := make(chan struct{})
	go func() {
		defer close(hbDone)
		w.heartbeatLoop(hbCtx)
	}()
	defer func() {
		stopHeartbeat()
		<-hbDone
	}()

	var wake <-chan struct{}
	if w.notifier != nil {
		unsubscribe, ch := w.notifier.Subscribe(domainjob.JobAddedChannel)
		defer unsubscribe()
		wake = ch
	}

	for !w.stopping() && ctx.Err() == nil {
		idle, err := w.step(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			// forced stop mid-step
		case err != nil:
			w.logger.ErrorContext(ctx, "worker error", "error", err)
			w.sleep(ctx, w.errorBackoff, nil)
		case idle:
			if !w.sleep(ctx, w.pollInterval, wake) {
				// notifier shut down; fall back to plain polling
				wake = nil
			}
		}
	}

	w.logger.InfoContext(context.WithoutCancel(ctx), "worker stopped", "forced", ctx.Err() != nil)
	return nil
}

// step runs one cycle: sweep stale leases, lease a job, execute it, record the outcome.
func (w *Worker) step(ctx context.Context) (bool, error) {
	if _, err := w.store.ReleaseStaleLeases(ctx, w.staleAfter); err != nil {
		return false, fmt.Errorf("release stale leases: %w", err)
	}

	job, err := w.store.AcquireJob(ctx, w.id)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire job: %w", err)
	}

	return false, w.process(ctx, job)
}

func (w *Worker) process(ctx context.Context, job *model.Job) error {
	logger := w.logger.With("job_id", job.ID)
	logger.InfoContext(ctx, "processing job", "command", job.Command, "attempt", job.Attempts+1)
	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: metrics.TransitionAcquired,
		Result:     metrics.ResultSuccess,
		WorkerID:   w.id,
	})

	w.setCurrentJob(job.ID)
	defer w.setCurrentJob("")
	w.heartbeat(ctx)

	res := w.executor.Execute(ctx, job.Command, job.Timeout())
	if ctx.Err() != nil {
		logger.WarnContext(context.WithoutCancel(ctx), "job abandoned by forced stop; lease left for the stale sweep")
		return ctx.Err()
	}

	if res.Success {
		output := res.Output
		if _, err := w.store.CompleteJob(ctx, job.ID, &output); err != nil {
			metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
				Transition: metrics.TransitionCompleted,
				Result:     metrics.ResultError,
				WorkerID:   w.id,
				Err:        err,
			})
			return fmt.Errorf("complete job %s: %w", job.ID, err)
		}
		logger.InfoContext(ctx, "job completed", "duration", res.Duration)
		metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
			Transition: metrics.TransitionCompleted,
			Result:     metrics.ResultSuccess,
			WorkerID:   w.id,
			Duration:   res.Duration,
		})
		return nil
	}

	failed, err := w.store.FailJob(ctx, job.ID, res.Error)
	if errors.Is(err, model.ErrInvalidTransition) {
		// The reaper released the lease while the command ran.
		logger.WarnContext(ctx, "job no longer held by this worker, failure not recorded", "error", res.Error)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail job %s: %w", job.ID, err)
	}
	logger.WarnContext(ctx, "job failed", "error", res.Error, "state", failed.State, "attempts", failed.Attempts)
	metrics.EmitJobLifecycle(w.metrics, metrics.JobMetric{
		Transition: metrics.FailureTransition(failed),
		Result:     metrics.ResultError,
		WorkerID:   w.id,
		Duration:   res.Duration,
		Err:        res.Err(),
	})
	return nil
}

// sleep waits for d, a stop request, ctx cancellation, or a wake-up, whichever
// comes first. It returns false when wake has been closed.
func (w *Worker) sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-w.stop:
	case <-ctx.Done():
	case _, ok := <-wake:
		return ok
	}
	return true
}

func (w *Worker) setCurrentJob(id string) {
	w.mu.Lock()
	w.info.JobID = id
	w.mu.Unlock()
}

func (w *Worker) snapshot() model.WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := w.info
	info.LastSeen = time.Now().UTC()
	return info
}

func (w *Worker) register(ctx context.Context) {
	w.mu.Lock()
	w.info.StartedAt = time.Now().UTC()
	w.mu.Unlock()

	if w.registry == nil {
		return
	}
	if err := w.registry.Register(ctx, w.snapshot()); err != nil {
		w.logger.WarnContext(ctx, "worker registration failed", "error", err)
	}
}

func (w *Worker) heartbeat(ctx context.Context) {
	if w.registry == nil {
		return
	}
	if err := w.registry.Heartbeat(ctx, w.snapshot()); err != nil {
		w.logger.DebugContext(ctx, "worker heartbeat failed", "error", err)
	}
}

func (w *Worker) heartbeatLoop(ctx context.Context) {
	if w.registry == nil {
		return
	}
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.heartbeat(ctx)
		}
	}
}

func (w *Worker) deregister() {
	if w.registry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.registry.Deregister(ctx, w.id); err != nil {
		w.logger.WarnContext(ctx, "worker deregistration failed", "error", err)
	}
}

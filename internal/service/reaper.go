package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/target/queuectl/config"
	"github.com/target/queuectl/internal/core"
	domainjob "github.com/target/queuectl/internal/domain/job"
	obserrors "github.com/target/queuectl/internal/observability/errors"
	"github.com/target/queuectl/internal/observability/metrics"
	"github.com/target/queuectl/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Store   core.JobStore       // Required: durable job store
	Config  config.ReaperConfig // Required: reaper configuration
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
	// StaleAfter is the lease age at which a processing job is considered abandoned.
	StaleAfter time.Duration
}

// ReaperService runs queue maintenance next to the workers.
//
// This service manages:
// - Returning jobs with stale leases to pending on every interval.
// - Refreshing the queue-depth gauges on every interval.
// - Deleting completed jobs past retention on a cron schedule.
type ReaperService struct {
	store      core.JobStore
	config     config.ReaperConfig
	staleAfter time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}
	if opts.Config.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}
	policy, err := domainjob.NewLeasePolicy(domainjob.DefaultStaleAfter)
	if err != nil {
		return nil, err
	}
	lease := policy.Resolve(opts.StaleAfter)
	staleAfter := lease.StaleAfter

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		if lease.Clamped() {
			logger.Warn("stale-after below minimum, clamped", "requested", opts.StaleAfter, "stale_after", staleAfter)
		}
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"stale_after", staleAfter,
			"stale_after_default", lease.UsedDefault(),
			"cleanup_schedule", opts.Config.CleanupSchedule,
			"retention_days", opts.Config.RetentionDays,
		)
	}

	return &ReaperService{
		store:      opts.Store,
		config:     opts.Config,
		staleAfter: staleAfter,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// Run sweeps at the configured interval and schedules retention cleanup until
// ctx is cancelled. It returns nil on graceful shutdown.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	scheduler, err := s.startCleanupSchedule(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			// Wait for an in-flight cleanup before returning.
			<-scheduler.Stop().Done()
		}()
	}

	// Add jitter so several worker processes started together do not sweep in lockstep.
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.Sweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(context.WithoutCancel(ctx), "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
			}
		}
	}
}

func (s *ReaperService) startCleanupSchedule(ctx context.Context) (*cron.Cron, error) {
	if s.config.RetentionDays <= 0 || s.config.CleanupSchedule == "" {
		if s.logger != nil {
			s.logger.InfoContext(ctx, "retention cleanup disabled")
		}
		return nil, nil
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(s.config.CleanupSchedule, func() {
		if _, err := s.Cleanup(ctx); err != nil {
			s.logSweepError(err, "cleanup")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", s.config.CleanupSchedule, err)
	}
	c.Start()
	return c, nil
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Sweep releases stale leases and refreshes the queue-depth gauges.
func (s *ReaperService) Sweep(ctx context.Context) error {
	start := time.Now()
	var errs []error

	released, err := s.store.ReleaseStaleLeases(ctx, s.staleAfter)
	s.emitOperation("release_stale", released, err)
	if err != nil {
		errs = append(errs, fmt.Errorf("release stale leases: %w", err))
	} else if released > 0 {
		if s.metrics != nil {
			s.metrics.Count(metrics.LeasesStale, released, nil)
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "released stale leases", "count", released, "stale_after", s.staleAfter)
		}
	}

	stats, err := s.store.GetStats(ctx)
	if err != nil {
		s.emitOperation("refresh_depth", 0, err)
		errs = append(errs, fmt.Errorf("refresh queue depth: %w", err))
	} else {
		metrics.EmitQueueDepth(s.metrics, stats)
		s.emitOperation("refresh_depth", int64(stats.Total()), nil)
	}

	return s.finish("reaper.sweep", start, errs)
}

// Cleanup deletes completed jobs older than the configured retention.
func (s *ReaperService) Cleanup(ctx context.Context) (int64, error) {
	start := time.Now()
	deleted, err := s.store.CleanupOlderThan(ctx, s.config.RetentionDays)
	s.emitOperation("delete_completed", deleted, err)
	if err != nil {
		return 0, s.finish("reaper.cleanup", start, []error{fmt.Errorf("delete completed jobs: %w", err)})
	}

	if deleted > 0 {
		if s.metrics != nil {
			s.metrics.Count(metrics.JobsCleaned, deleted, nil)
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "deleted completed jobs",
				"count", deleted,
				"retention_days", s.config.RetentionDays,
			)
		}
	}
	return deleted, s.finish("reaper.cleanup", start, nil)
}

// finish emits the run metric and folds errs into one. A run that failed only
// because ctx ended reports context.Canceled.
func (s *ReaperService) finish(metric string, start time.Time, errs []error) error {
	var joined error
	if len(errs) > 0 {
		joined = errors.Join(errs...)
	}

	if s.metrics != nil {
		tags := map[string]string{"result": metrics.ResultSuccess}
		if err := suppressContextCancellation(joined); err != nil {
			tags["result"] = metrics.ResultError
			if class := obserrors.Classify(err); class != "" {
				tags["error_class"] = class
			}
		}
		s.metrics.Count(metric, 1, tags)
		s.metrics.Timing(metric+"_duration", time.Since(start), metrics.CloneTags(tags))
		if joined == nil {
			s.metrics.Gauge(metric+".last_success_epoch", float64(time.Now().Unix()), nil)
		}
	}

	if joined == nil {
		return nil
	}
	if allContextCancellation(errs) {
		return context.Canceled
	}
	return joined
}

func (s *ReaperService) emitOperation(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	err = suppressContextCancellation(err)
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	s.metrics.Count("reaper.operation", 1, tags)
}

func (s *ReaperService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func allContextCancellation(errs []error) bool {
	for _, err := range errs {
		if !isContextCancellation(err) {
			return false
		}
	}
	return len(errs) > 0
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}

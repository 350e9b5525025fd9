// Package service holds the queue operations the CLI and the worker runtime call into.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/target/queuectl/internal/core"
	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

// DefaultListLimit matches the store's default page size.
const DefaultListLimit = 50

// ErrWorkerRegistryDisabled is returned by Workers when no registry is configured.
var ErrWorkerRegistryDisabled = errors.New("worker registry disabled")

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Store    core.JobStore       // Required: durable job store
	Registry core.WorkerRegistry // Optional: worker liveness for Status
	Logger   *slog.Logger        // Optional: structured logger
}

// JobService provides the operator-facing job operations.
//
// This service manages:
// - Enqueueing jobs and parsing job specs.
// - Listing, inspecting and retrying jobs, including the dead letter queue.
// - Queue configuration and status reporting.
type JobService struct {
	store    core.JobStore
	registry core.WorkerRegistry
	logger   *slog.Logger
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Store == nil {
		return nil, errors.New("JobStore is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized", "worker_registry", opts.Registry != nil)
	}

	return &JobService{
		store:    opts.Store,
		registry: opts.Registry,
		logger:   logger,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// ParseJobSpec decodes a JSON job description such as
// {"id":"job1","command":"echo hi","max_retries":2,"timeout":30,"run_at":"2025-01-01T00:00:00Z"}.
func ParseJobSpec(raw string) (*model.CreateJobRequest, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	var req model.CreateJobRequest
	if err := dec.Decode(&req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, apperrors.Validationf("invalid job JSON: unexpected data after the job object")
	}
	req.ID = strings.TrimSpace(req.ID)
	return &req, nil
}

// Enqueue validates req and stores it as a pending job.
func (s *JobService) Enqueue(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job")
	}

	job, err := s.store.CreateJob(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job enqueued",
			"id", job.ID,
			"max_retries", job.MaxRetries,
			"run_at", job.RunAt,
		)
	}
	return job, nil
}

// Get returns one job by id.
func (s *JobService) Get(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List returns jobs newest first, optionally filtered by state.
func (s *JobService) List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	jobs, err := s.store.ListJobs(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ListDead returns the dead letter queue.
func (s *JobService) ListDead(ctx context.Context, limit int) ([]*model.Job, error) {
	dead := model.JobStateDead
	return s.List(ctx, model.JobListOptions{State: &dead, Limit: limit})
}

// Retry moves a dead job back to pending with a fresh retry budget.
func (s *JobService) Retry(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.store.RetryFromDLQ(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("retry job %s: %w", id, err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job retried from DLQ", "id", id)
	}
	return job, nil
}

// Status reports job counts per state and, when a registry is configured, the live workers.
// A registry outage degrades to untracked workers rather than failing the command.
func (s *JobService) Status(ctx context.Context) (*model.QueueStatus, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	status := &model.QueueStatus{Jobs: *stats}
	if s.registry == nil {
		return status, nil
	}

	workers, err := s.registry.List(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "worker registry unavailable", "error", err)
		}
		return status, nil
	}
	status.WorkersTracked = true
	status.Workers = workers
	status.ActiveWorkers = len(workers)
	return status, nil
}

// Workers lists the live workers. Unlike Status it fails when the registry
// is missing or unreachable, since callers act on the result.
func (s *JobService) Workers(ctx context.Context) ([]model.WorkerInfo, error) {
	if s.registry == nil {
		return nil, apperrors.Wrap(ErrWorkerRegistryDisabled, apperrors.ErrCodeValidation, "set REDIS_ENABLED to track workers")
	}
	workers, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	return workers, nil
}

// Config returns every queue setting.
func (s *JobService) Config(ctx context.Context) (map[model.ConfigKey]int, error) {
	values, err := s.store.ListConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	return values, nil
}

// GetConfig returns one setting. rawKey may use either max-retries or max_retries spelling.
func (s *JobService) GetConfig(ctx context.Context, rawKey string) (model.ConfigKey, int, error) {
	key, err := model.ParseConfigKey(rawKey)
	if err != nil {
		return "", 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "get config")
	}
	value, err := s.store.GetConfig(ctx, key)
	if err != nil {
		return "", 0, fmt.Errorf("get config %s: %w", key, err)
	}
	return key, value, nil
}

// SetConfig parses and stores one setting. New values apply to jobs created afterwards.
func (s *JobService) SetConfig(ctx context.Context, rawKey, rawValue string) (model.ConfigKey, int, error) {
	key, err := model.ParseConfigKey(rawKey)
	if err != nil {
		return "", 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "set config")
	}
	value, err := key.ParseConfigValue(rawValue)
	if err != nil {
		return "", 0, apperrors.Wrap(err, apperrors.ErrCodeValidation, "set config")
	}
	if err := s.store.SetConfig(ctx, key, value); err != nil {
		return "", 0, fmt.Errorf("set config %s: %w", key, err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "config updated", "key", key, "value", value)
	}
	return key, value, nil
}

// Cleanup deletes completed jobs older than days.
func (s *JobService) Cleanup(ctx context.Context, days int) (int64, error) {
	deleted, err := s.store.CleanupOlderThan(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}
	return deleted, nil
}


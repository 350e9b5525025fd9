// Package core defines the ports shared by the queuectl services, worker runtime and store.
package core

import (
	"context"
	"time"

	"github.com/target/queuectl/internal/domain/model"
)

// This file contains the ports between the services, the worker runtime and the data layer.
// Implementations live in internal/data and internal/adapters.

// JobStore is the durable job store shared by every worker process.
type JobStore interface {
	CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	AcquireJob(ctx context.Context, workerID string) (*model.Job, error)
	CompleteJob(ctx context.Context, id string, output *string) (*model.Job, error)
	FailJob(ctx context.Context, id, errMsg string) (*model.Job, error)
	RetryFromDLQ(ctx context.Context, id string) (*model.Job, error)
	ReleaseStaleLeases(ctx context.Context, staleAfter time.Duration) (int64, error)
	ListJobs(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	GetStats(ctx context.Context) (*model.JobStats, error)
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
	GetConfig(ctx context.Context, key model.ConfigKey) (int, error)
	SetConfig(ctx context.Context, key model.ConfigKey, value int) error
	ListConfig(ctx context.Context) (map[model.ConfigKey]int, error)
}

// WorkerRegistry publishes worker liveness so any process can count active workers.
type WorkerRegistry interface {
	Register(ctx context.Context, info model.WorkerInfo) error
	Heartbeat(ctx context.Context, info model.WorkerInfo) error
	Deregister(ctx context.Context, workerID string) error
	List(ctx context.Context) ([]model.WorkerInfo, error)
}

// CommandExecutor runs a job command. Failures are reported in the result, never as a panic.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, timeout time.Duration) model.ExecutionResult
}

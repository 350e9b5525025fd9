// Package mocks provides gomock implementations of the queuectl ports in internal/core.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	store := mocks.NewMockJobStore(ctrl)
//	store.EXPECT().AcquireJob(gomock.Any(), "worker-1").Return(job, nil)
package mocks

// JobStore: CreateJob, GetJob, AcquireJob, CompleteJob, FailJob, RetryFromDLQ, ReleaseStaleLeases,
// ListJobs, GetStats, CleanupOlderThan, GetConfig, SetConfig, ListConfig
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/target/queuectl/internal/core JobStore

// WorkerRegistry: Register, Heartbeat, Deregister, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=worker_registry_mock.go github.com/target/queuectl/internal/core WorkerRegistry

// CommandExecutor: Execute
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=command_executor_mock.go github.com/target/queuectl/internal/core CommandExecutor

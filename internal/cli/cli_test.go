package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"

	"github.com/target/queuectl/internal/bootstrap"
	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
	"github.com/target/queuectl/internal/mocks"
	"github.com/target/queuectl/internal/service"
)

type fakeBackend struct {
	jobs *service.JobService

	workerIDs  []string
	workerErr  error
	workerOpts bootstrap.WorkerRunOptions

	applied    []string
	migrateErr error

	openOpts OpenOptions
	closed   bool
}

func (f *fakeBackend) Jobs() *service.JobService { return f.jobs }

func (f *fakeBackend) RunWorkers(_ context.Context, opts bootstrap.WorkerRunOptions) error {
	f.workerOpts = opts
	if f.workerErr != nil {
		return f.workerErr
	}
	if opts.Started != nil {
		opts.Started(f.workerIDs)
	}
	return nil
}

func (f *fakeBackend) Migrate(context.Context) ([]string, error) {
	return f.applied, f.migrateErr
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func newTestBackend(t *testing.T) (*fakeBackend, *mocks.MockJobStore, *mocks.MockWorkerRegistry) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockJobStore(ctrl)
	registry := mocks.NewMockWorkerRegistry(ctrl)
	jobs := service.MustNewJobService(service.JobServiceOptions{Store: store, Registry: registry})
	return &fakeBackend{jobs: jobs}, store, registry
}

func runCLI(t *testing.T, backend *fakeBackend, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := BuildCLI(Options{
		Out: &out,
		Err: &out,
		Open: func(_ context.Context, opts OpenOptions) (Backend, error) {
			backend.openOpts = opts
			return backend, nil
		},
	})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func strPtr(s string) *string { return &s }

func TestEnqueue_FromJSON(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, "job1", req.ID)
			assert.Equal(t, "echo hello", req.Command)
			assert.Nil(t, req.MaxRetries)
			return &model.Job{ID: req.ID, Command: req.Command, State: model.JobStatePending, MaxRetries: 3}, nil
		})

	out, err := runCLI(t, backend, "enqueue", `{"id":"job1","command":"echo hello"}`)
	require.NoError(t, err)
	assert.Equal(t, "Job job1 enqueued\n", out)
	assert.True(t, backend.closed)
}

func TestEnqueue_FlagsOverrideJSON(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	before := time.Now().UTC()
	store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.CreateJobRequest) (*model.Job, error) {
			assert.Equal(t, "sleep 1", req.Command)
			require.NotNil(t, req.MaxRetries)
			assert.Equal(t, 5, *req.MaxRetries)
			require.NotNil(t, req.TimeoutSeconds)
			assert.Equal(t, 30, *req.TimeoutSeconds)
			require.NotNil(t, req.RunAt)
			assert.WithinDuration(t, before.Add(time.Minute), *req.RunAt, 5*time.Second)
			return &model.Job{ID: "generated", Command: req.Command, RunAt: req.RunAt}, nil
		})

	out, err := runCLI(t, backend, "enqueue", `{"command":"echo hi","max_retries":1}`,
		"--command", "sleep 1", "--max-retries", "5", "--timeout", "30", "--delay", "1m")
	require.NoError(t, err)
	assert.Contains(t, out, "Job generated enqueued (runs at ")
}

func TestEnqueue_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no command", args: []string{"enqueue"}},
		{name: "bad json", args: []string{"enqueue", "echo hi"}},
		{name: "negative retries", args: []string{"enqueue", "--command", "true", "--max-retries", "-1"}},
		{name: "bad run-at", args: []string{"enqueue", "--command", "true", "--run-at", "tomorrow"}},
		{name: "negative delay", args: []string{"enqueue", "--command", "true", "--delay", "-5s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _, _ := newTestBackend(t)
			_, err := runCLI(t, backend, tt.args...)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}

	t.Run("run-at and delay are exclusive", func(t *testing.T) {
		backend, _, _ := newTestBackend(t)
		_, err := runCLI(t, backend, "enqueue", "--command", "true",
			"--run-at", "2030-01-01T00:00:00Z", "--delay", "1m")
		require.Error(t, err)
	})
}

func TestEnqueue_DuplicateID(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().CreateJob(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Wrap(model.ErrDuplicateID, apperrors.ErrCodeConflict, "job job1"))

	_, err := runCLI(t, backend, "enqueue", `{"id":"job1","command":"true"}`)
	require.ErrorIs(t, err, model.ErrDuplicateID)
	assert.True(t, backend.closed)
}

func TestStatus(t *testing.T) {
	backend, store, registry := newTestBackend(t)
	store.EXPECT().GetStats(gomock.Any()).
		Return(&model.JobStats{Pending: 3, Deferred: 1, Processing: 1, Completed: 7, Dead: 2}, nil)
	registry.EXPECT().List(gomock.Any()).Return([]model.WorkerInfo{
		{ID: "worker-0a1b2c3d", Hostname: "host", PID: 42, JobID: "job1"},
		{ID: "worker-4e5f6a7b", Hostname: "host", PID: 42},
	}, nil)

	out, err := runCLI(t, backend, "status")
	require.NoError(t, err)
	assert.Regexp(t, `pending\s+3`, out)
	assert.Regexp(t, `completed\s+7`, out)
	assert.Regexp(t, `total\s+13`, out)
	assert.Contains(t, out, "1 pending job(s) waiting on run_at")
	assert.Contains(t, out, "Active workers: 2")
	assert.Contains(t, out, "worker-0a1b2c3d")
}

func TestStatus_JSON(t *testing.T) {
	backend, store, registry := newTestBackend(t)
	store.EXPECT().GetStats(gomock.Any()).Return(&model.JobStats{Pending: 1}, nil)
	registry.EXPECT().List(gomock.Any()).Return(nil, errors.New("connection refused"))

	out, err := runCLI(t, backend, "status", "-o", "json")
	require.NoError(t, err)

	var status model.QueueStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, 1, status.Jobs.Pending)
	assert.False(t, status.WorkersTracked)
}

func TestList(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	longCommand := "echo " + string(bytes.Repeat([]byte("x"), 80))

	backend, store, _ := newTestBackend(t)
	store.EXPECT().ListJobs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, opts model.JobListOptions) ([]*model.Job, error) {
			require.NotNil(t, opts.State)
			assert.Equal(t, model.JobStatePending, *opts.State)
			assert.Equal(t, 10, opts.Limit)
			return []*model.Job{{
				ID: "job1", Command: longCommand, State: model.JobStatePending,
				Attempts: 1, MaxRetries: 3, CreatedAt: created,
			}}, nil
		})

	out, err := runCLI(t, backend, "list", "--state", "PENDING", "--limit", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "2025-03-04 05:06:07")
	assert.Contains(t, out, longCommand[:50]+"...")
	assert.NotContains(t, out, longCommand)
}

func TestList_Empty(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().ListJobs(gomock.Any(), model.JobListOptions{Limit: service.DefaultListLimit}).Return(nil, nil)

	out, err := runCLI(t, backend, "list")
	require.NoError(t, err)
	assert.Equal(t, "No jobs found\n", out)
}

func TestList_InvalidState(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	_, err := runCLI(t, backend, "list", "--state", "running")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, backend.closed, "invalid flags never open the backend")
}

func TestList_YAML(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().ListJobs(gomock.Any(), gomock.Any()).
		Return([]*model.Job{{ID: "job1", Command: "true", State: model.JobStateCompleted}}, nil)

	out, err := runCLI(t, backend, "list", "--output", "yaml")
	require.NoError(t, err)

	var jobs []model.Job
	require.NoError(t, yaml.Unmarshal([]byte(out), &jobs))
	require.Len(t, jobs, 1)
	assert.Equal(t, model.JobStateCompleted, jobs[0].State)
}

func TestShow(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().GetJob(gomock.Any(), "job1").Return(&model.Job{
		ID: "job1", Command: "exit 3", State: model.JobStateDead, Attempts: 4, MaxRetries: 3,
		Error: strPtr("exit code 3"), Output: strPtr("partial\n"),
	}, nil)

	out, err := runCLI(t, backend, "show", "job1")
	require.NoError(t, err)
	assert.Regexp(t, `State:\s+dead`, out)
	assert.Contains(t, out, "4/3")
	assert.Contains(t, out, "Last error:\nexit code 3")
	assert.Contains(t, out, "Output:\npartial\n")
}

func TestShow_NotFound(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().GetJob(gomock.Any(), "nope").
		Return(nil, apperrors.Wrap(model.ErrJobNotFound, apperrors.ErrCodeNotFound, "job nope"))

	_, err := runCLI(t, backend, "show", "nope")
	require.ErrorIs(t, err, model.ErrJobNotFound)
}

func TestDLQList(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().ListJobs(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, opts model.JobListOptions) ([]*model.Job, error) {
			require.NotNil(t, opts.State)
			assert.Equal(t, model.JobStateDead, *opts.State)
			return []*model.Job{{ID: "dead1", Command: "false", State: model.JobStateDead, Attempts: 4,
				Error: strPtr("exit code 1")}}, nil
		})

	out, err := runCLI(t, backend, "dlq", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "LAST ERROR")
	assert.Regexp(t, `dead1\s+false\s+4\s+exit code 1`, out)
}

func TestDLQList_Empty(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().ListJobs(gomock.Any(), gomock.Any()).Return([]*model.Job{}, nil)

	out, err := runCLI(t, backend, "dlq", "list")
	require.NoError(t, err)
	assert.Equal(t, "DLQ is empty\n", out)
}

func TestDLQRetry(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().RetryFromDLQ(gomock.Any(), "dead1").
		Return(&model.Job{ID: "dead1", State: model.JobStatePending}, nil)

	out, err := runCLI(t, backend, "dlq", "retry", "dead1")
	require.NoError(t, err)
	assert.Equal(t, "Job dead1 moved back to pending\n", out)

	backend, store, _ = newTestBackend(t)
	store.EXPECT().RetryFromDLQ(gomock.Any(), "live").
		Return(nil, apperrors.Wrap(model.ErrNotInDLQ, apperrors.ErrCodeNotInDLQ, "job live"))
	_, err = runCLI(t, backend, "dlq", "retry", "live")
	require.ErrorIs(t, err, model.ErrNotInDLQ)

	_, err = runCLI(t, backend, "dlq", "retry")
	require.Error(t, err, "job id is required")
}

func TestConfigCommands(t *testing.T) {
	t.Run("get one", func(t *testing.T) {
		backend, store, _ := newTestBackend(t)
		store.EXPECT().GetConfig(gomock.Any(), model.ConfigMaxRetries).Return(3, nil)

		out, err := runCLI(t, backend, "config", "get", "max-retries")
		require.NoError(t, err)
		assert.Equal(t, "max-retries: 3\n", out)
	})

	t.Run("get all", func(t *testing.T) {
		backend, store, _ := newTestBackend(t)
		store.EXPECT().ListConfig(gomock.Any()).Return(map[model.ConfigKey]int{model.ConfigMaxRetries: 5}, nil)

		out, err := runCLI(t, backend, "config", "get")
		require.NoError(t, err)
		assert.Regexp(t, `max-retries\s+5`, out)
		assert.Regexp(t, `backoff-base\s+2`, out, "missing keys show their defaults")
	})

	t.Run("set", func(t *testing.T) {
		backend, store, _ := newTestBackend(t)
		store.EXPECT().SetConfig(gomock.Any(), model.ConfigBackoffBase, 3).Return(nil)

		out, err := runCLI(t, backend, "config", "set", "backoff-base", "3")
		require.NoError(t, err)
		assert.Equal(t, "backoff-base = 3\n", out)
	})

	t.Run("set json", func(t *testing.T) {
		backend, store, _ := newTestBackend(t)
		store.EXPECT().SetConfig(gomock.Any(), model.ConfigMaxRetries, 0).Return(nil)

		out, err := runCLI(t, backend, "config", "set", "max_retries", "0", "-o", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"max_retries":0}`, out)
	})

	t.Run("set rejects bad value", func(t *testing.T) {
		backend, _, _ := newTestBackend(t)
		_, err := runCLI(t, backend, "config", "set", "backoff-base", "0")
		require.ErrorIs(t, err, model.ErrInvalidConfigValue)
	})
}

func TestCleanup(t *testing.T) {
	backend, store, _ := newTestBackend(t)
	store.EXPECT().CleanupOlderThan(gomock.Any(), 7).Return(int64(12), nil)

	out, err := runCLI(t, backend, "cleanup")
	require.NoError(t, err)
	assert.Equal(t, "Deleted 12 old job(s)\n", out)

	backend, store, _ = newTestBackend(t)
	store.EXPECT().CleanupOlderThan(gomock.Any(), 0).Return(int64(1), nil)
	_, err = runCLI(t, backend, "cleanup", "--days", "0")
	require.NoError(t, err)

	_, err = runCLI(t, backend, "cleanup", "--days", "-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestWorkerStart(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	backend.workerIDs = []string{"worker-0a1b2c3d", "worker-4e5f6a7b"}

	out, err := runCLI(t, backend, "worker", "start", "--count", "2")
	require.NoError(t, err)
	assert.Equal(t, 2, backend.workerOpts.Count)
	assert.Contains(t, out, "Started 2 worker(s): worker-0a1b2c3d, worker-4e5f6a7b")
	assert.Contains(t, out, "All workers stopped")
	assert.True(t, backend.closed)
}

func TestWorkerStart_Errors(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	_, err := runCLI(t, backend, "worker", "start", "--count", "-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	backend.workerErr = errors.New("create worker pool: boom")
	out, err := runCLI(t, backend, "worker", "start")
	require.Error(t, err)
	assert.NotContains(t, out, "All workers stopped")
}

func TestWorkerStop(t *testing.T) {
	hostname, err := os.Hostname()
	require.NoError(t, err)

	backend, _, registry := newTestBackend(t)
	registry.EXPECT().List(gomock.Any()).Return([]model.WorkerInfo{
		{ID: "worker-0a1b2c3d", Hostname: hostname, PID: 4242},
		{ID: "worker-4e5f6a7b", Hostname: hostname, PID: 4242},
		{ID: "worker-8c9d0e1f", Hostname: hostname, PID: 5151},
		{ID: "worker-self", Hostname: hostname, PID: os.Getpid()},
		{ID: "worker-remote", Hostname: hostname + "-elsewhere", PID: 4242},
	}, nil)

	var signalled []int
	var out bytes.Buffer
	root := BuildCLI(Options{
		Out: &out,
		Open: func(context.Context, OpenOptions) (Backend, error) {
			return backend, nil
		},
		Signal: func(pid int) error {
			signalled = append(signalled, pid)
			if pid == 5151 {
				return os.ErrProcessDone
			}
			return nil
		},
	})
	root.SetArgs([]string{"worker", "stop"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Equal(t, []int{4242, 5151}, signalled, "each local process is signalled once and never this one")
	assert.Contains(t, out.String(), "Stop signal sent to 1 worker process(es): 4242")
	assert.Contains(t, out.String(), "Already exited: 5151")
	assert.Contains(t, out.String(), "Skipped 1 worker(s) on other hosts")
}

func TestWorkerStop_NoWorkers(t *testing.T) {
	backend, _, registry := newTestBackend(t)
	registry.EXPECT().List(gomock.Any()).Return(nil, nil)

	out, err := runCLI(t, backend, "worker", "stop")
	require.NoError(t, err)
	assert.Equal(t, "No running workers found\n", out)
}

func TestWorkerStop_RegistryDisabled(t *testing.T) {
	store := mocks.NewMockJobStore(gomock.NewController(t))
	backend := &fakeBackend{jobs: service.MustNewJobService(service.JobServiceOptions{Store: store})}

	_, err := runCLI(t, backend, "worker", "stop")
	require.ErrorIs(t, err, service.ErrWorkerRegistryDisabled)
	assert.True(t, apperrors.IsValidation(err))
}

func TestMigrate(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	backend.applied = []string{"0001_jobs", "0002_config"}

	out, err := runCLI(t, backend, "migrate")
	require.NoError(t, err)
	assert.True(t, backend.openOpts.SkipMigrations)
	assert.Equal(t, "Applied 0001_jobs\nApplied 0002_config\n", out)

	backend.applied = nil
	out, err = runCLI(t, backend, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "Database schema is up to date\n", out)
}

func TestOutputFlagValidation(t *testing.T) {
	backend, _, _ := newTestBackend(t)
	_, err := runCLI(t, backend, "status", "--output", "xml")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestOpenError(t *testing.T) {
	root := BuildCLI(Options{
		Out: &bytes.Buffer{},
		Open: func(context.Context, OpenOptions) (Backend, error) {
			return nil, errors.New("dial tcp 127.0.0.1:5432: connection refused")
		},
	})
	root.SetArgs([]string{"status"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect:")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "a b", truncate("a\n  b", 10))
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
}

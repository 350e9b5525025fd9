package jobrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
	"github.com/target/queuectl/internal/mocks"
)

const testWorkerID = "worker-test"

type fakeNotifier struct {
	ch chan struct{}
}

func (f *fakeNotifier) Subscribe(string) (func(), <-chan struct{}) { return func() {}, f.ch }
func (f *fakeNotifier) StopAll()                                   {}

type workerHarness struct {
	store *mocks.MockJobStore
	exec  *mocks.MockCommandExecutor
}

func newHarness(t *testing.T) *workerHarness {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &workerHarness{
		store: mocks.NewMockJobStore(ctrl),
		exec:  mocks.NewMockCommandExecutor(ctrl),
	}
}

func (h *workerHarness) worker(t *testing.T, mutate func(*WorkerOptions)) *Worker {
	t.Helper()
	opts := WorkerOptions{
		ID:           testWorkerID,
		Store:        h.store,
		Executor:     h.exec,
		PollInterval: 10 * time.Millisecond,
		ErrorBackoff: 10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	w, err := NewWorker(opts)
	require.NoError(t, err)
	return w
}

// runWorker runs w.Run in the background and fails the test if it does not return in time.
func runWorker(t *testing.T, ctx context.Context, w *Worker) {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		w.Stop()
		t.Fatal("worker did not stop")
	}
}

func processingJob(id, command string) *model.Job {
	worker := testWorkerID
	return &model.Job{ID: id, Command: command, State: model.JobStateProcessing, LockedBy: &worker}
}

func TestNewWorker_Validation(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		opts WorkerOptions
	}{
		{name: "missing id", opts: WorkerOptions{Store: h.store, Executor: h.exec}},
		{name: "missing store", opts: WorkerOptions{ID: "w", Executor: h.exec}},
		{name: "missing executor", opts: WorkerOptions{ID: "w", Store: h.store}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWorker(tt.opts)
			require.Error(t, err)
		})
	}

	w, err := NewWorker(WorkerOptions{ID: "w", Store: h.store, Executor: h.exec})
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, w.pollInterval)
	assert.Equal(t, DefaultErrorBackoff, w.errorBackoff)
	assert.Equal(t, 5*time.Minute, w.staleAfter)

	w, err = NewWorker(WorkerOptions{ID: "w", Store: h.store, Executor: h.exec, StaleAfter: 10 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, time.Second, w.staleAfter, "tiny thresholds are raised to the minimum")
}

func TestWorker_CompletesJob(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, nil)

	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), 5*time.Minute).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).Return(processingJob("j1", "echo hi"), nil)
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).Return(nil, model.ErrNoJobsAvailable).AnyTimes()
	h.exec.EXPECT().Execute(gomock.Any(), "echo hi", time.Duration(0)).
		Return(model.ExecutionResult{Success: true, Output: "hi\n"})
	h.store.EXPECT().CompleteJob(gomock.Any(), "j1", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, output *string) (*model.Job, error) {
			require.NotNil(t, output)
			assert.Equal(t, "hi\n", *output)
			w.Stop()
			return &model.Job{ID: id, State: model.JobStateCompleted}, nil
		})

	runWorker(t, context.Background(), w)
}

func TestWorker_FailsJob(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, nil)

	timeout := 2
	job := processingJob("j2", "exit 1")
	job.TimeoutSeconds = &timeout

	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).Return(job, nil)
	h.exec.EXPECT().Execute(gomock.Any(), "exit 1", 2*time.Second).
		Return(model.ExecutionResult{ExitCode: 1, Error: "Exit code 1"})
	h.store.EXPECT().FailJob(gomock.Any(), "j2", "Exit code 1").
		DoAndReturn(func(_ context.Context, id, _ string) (*model.Job, error) {
			w.Stop()
			return &model.Job{ID: id, State: model.JobStatePending, Attempts: 1}, nil
		})

	runWorker(t, context.Background(), w)
}

func TestWorker_FailureAfterLeaseReleased(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, nil)

	h.exec.EXPECT().Execute(gomock.Any(), "exit 1", time.Duration(0)).
		Return(model.ExecutionResult{ExitCode: 1, Error: "Exit code 1"})
	h.store.EXPECT().FailJob(gomock.Any(), "j3", "Exit code 1").
		Return(nil, apperrors.Wrapf(model.ErrInvalidTransition, apperrors.ErrCodeConflict, "job j3 (state: pending)"))

	err := w.process(context.Background(), processingJob("j3", "exit 1"))
	require.NoError(t, err, "a job swept back to pending is not a worker error")
}

func TestWorker_BacksOffOnStoreError(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, nil)

	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), errors.New("connection refused"))
	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).
		DoAndReturn(func(context.Context, string) (*model.Job, error) {
			w.Stop()
			return nil, model.ErrNoJobsAvailable
		})

	runWorker(t, context.Background(), w)
}

func TestWorker_ForcedStopAbandonsJob(t *testing.T) {
	h := newHarness(t)
	w := h.worker(t, nil)
	ctx, kill := context.WithCancel(context.Background())
	defer kill()

	started := make(chan struct{})
	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).Return(processingJob("j3", "sleep 60"), nil)
	h.exec.EXPECT().Execute(gomock.Any(), "sleep 60", time.Duration(0)).
		DoAndReturn(func(ctx context.Context, _ string, _ time.Duration) model.ExecutionResult {
			close(started)
			<-ctx.Done()
			return model.ExecutionResult{ExitCode: -1, Error: "Execution error: context canceled"}
		})
	// no CompleteJob or FailJob: the lease is left for the stale sweep

	go func() {
		<-started
		w.Stop()
		kill()
	}()
	runWorker(t, ctx, w)
}

func TestWorker_WakesOnNotification(t *testing.T) {
	h := newHarness(t)
	notifier := &fakeNotifier{ch: make(chan struct{}, 1)}
	w := h.worker(t, func(o *WorkerOptions) {
		o.PollInterval = time.Hour
		o.Notifier = notifier
	})

	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).
		DoAndReturn(func(context.Context, string) (*model.Job, error) {
			notifier.ch <- struct{}{}
			return nil, model.ErrNoJobsAvailable
		})
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).
		DoAndReturn(func(context.Context, string) (*model.Job, error) {
			w.Stop()
			return nil, model.ErrNoJobsAvailable
		})

	runWorker(t, context.Background(), w)
}

func TestWorker_RegistersWithRegistry(t *testing.T) {
	h := newHarness(t)
	registry := mocks.NewMockWorkerRegistry(gomock.NewController(t))
	w := h.worker(t, func(o *WorkerOptions) {
		o.Registry = registry
		o.HeartbeatInterval = 5 * time.Millisecond
	})

	var mu sync.Mutex
	var busySeen bool
	registry.EXPECT().Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, info model.WorkerInfo) error {
			assert.Equal(t, testWorkerID, info.ID)
			assert.NotZero(t, info.PID)
			assert.False(t, info.StartedAt.IsZero())
			return nil
		})
	registry.EXPECT().Heartbeat(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, info model.WorkerInfo) error {
			if info.JobID == "j4" {
				mu.Lock()
				busySeen = true
				mu.Unlock()
			}
			return nil
		}).AnyTimes()
	registry.EXPECT().Deregister(gomock.Any(), testWorkerID).Return(nil)

	h.store.EXPECT().ReleaseStaleLeases(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	h.store.EXPECT().AcquireJob(gomock.Any(), testWorkerID).Return(processingJob("j4", "true"), nil)
	h.exec.EXPECT().Execute(gomock.Any(), "true", time.Duration(0)).Return(model.ExecutionResult{Success: true})
	h.store.EXPECT().CompleteJob(gomock.Any(), "j4", gomock.Any()).
		DoAndReturn(func(_ context.Context, id string, _ *string) (*model.Job, error) {
			w.Stop()
			return &model.Job{ID: id, State: model.JobStateCompleted}, nil
		})

	runWorker(t, context.Background(), w)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, busySeen, "heartbeat should report the running job")
}

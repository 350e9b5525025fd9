package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/target/queuectl/internal/observability/metrics"
)

// DefaultShutdownGrace is how long StopWorkers waits before killing workers.
const DefaultShutdownGrace = 30 * time.Second

// PoolOptions configures a Pool. Worker is the template for every worker; its ID is ignored.
type PoolOptions struct {
	Worker        WorkerOptions
	ShutdownGrace time.Duration
	Logger        *slog.Logger
}

// Pool runs workers as goroutines in this process.
type Pool struct {
	template WorkerOptions
	grace    time.Duration
	logger   *slog.Logger

	// killCtx is every worker's run context; cancelling it is the forced stop.
	killCtx context.Context
	kill    context.CancelFunc

	group  errgroup.Group
	active atomic.Int64

	mu      sync.Mutex
	workers []*Worker
}

// NewPool creates an empty pool.
func NewPool(opts PoolOptions) (*Pool, error) {
	if opts.Worker.Store == nil || opts.Worker.Executor == nil {
		return nil, errors.New("worker template needs a store and an executor")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Worker.Logger == nil {
		opts.Worker.Logger = logger
	}
	killCtx, kill := context.WithCancel(context.Background())

	return &Pool{
		template: opts.Worker,
		grace:    durationOr(opts.ShutdownGrace, DefaultShutdownGrace),
		logger:   logger.With("component", "pool"),
		killCtx:  killCtx,
		kill:     kill,
	}, nil
}

// NewWorkerID returns an id of the form worker-<8 hex chars>.
func NewWorkerID() string {
	return "worker-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// StartWorkers launches n workers and returns their ids.
func (p *Pool) StartWorkers(n int) ([]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("worker count must be >= 1, got %d", n)
	}
	if p.killCtx.Err() != nil {
		return nil, errors.New("pool already stopped")
	}

	ids := make([]string, 0, n)
	for range n {
		opts := p.template
		opts.ID = NewWorkerID()
		w, err := NewWorker(opts)
		if err != nil {
			return ids, fmt.Errorf("create worker: %w", err)
		}

		p.mu.Lock()
		p.workers = append(p.workers, w)
		p.mu.Unlock()

		p.setActive(p.active.Add(1))
		p.group.Go(func() error {
			defer func() { p.setActive(p.active.Add(-1)) }()
			return w.Run(p.killCtx)
		})
		ids = append(ids, w.ID())
	}

	p.logger.Info("started workers", "count", n, "worker_ids", ids)
	return ids, nil
}

// StopWorkers asks every worker to finish its current job, waits up to the
// shutdown grace, then kills whatever is still running.
func (p *Pool) StopWorkers() {
	p.mu.Lock()
	workers := append([]*Worker(nil), p.workers...)
	p.mu.Unlock()

	p.logger.Info("stopping workers", "count", len(workers), "grace", p.grace)
	for _, w := range workers {
		w.Stop()
	}

	deadline := time.NewTimer(p.grace)
	defer deadline.Stop()
wait:
	for _, w := range workers {
		select {
		case <-w.Done():
		case <-deadline.C:
			p.forceKill(workers)
			break wait
		}
	}

	// Run never returns an error.
	_ = p.group.Wait()
	// The pool cannot be restarted after a stop.
	p.kill()

	p.mu.Lock()
	p.workers = nil
	p.mu.Unlock()
	p.logger.Info("all workers stopped")
}

// Kill cancels every worker immediately, killing running commands. Their leases
// are left for the stale sweep.
func (p *Pool) Kill() {
	p.logger.Warn("killing all workers")
	p.kill()
}

func (p *Pool) forceKill(workers []*Worker) {
	var survivors []string
	for _, w := range workers {
		select {
		case <-w.Done():
		default:
			survivors = append(survivors, w.ID())
		}
	}
	p.logger.Warn("force killing workers", "worker_ids", survivors)
	p.kill()
}

// Wait blocks until every worker has exited or ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CountActive returns the number of workers whose loop is still running.
func (p *Pool) CountActive() int {
	return int(p.active.Load())
}

func (p *Pool) setActive(n int64) {
	if p.template.Metrics != nil {
		p.template.Metrics.Gauge(metrics.WorkersActive, float64(n), nil)
	}
}

package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/target/queuectl/internal/adapters/jobrunner"
	"github.com/target/queuectl/internal/adapters/reaper"
	"github.com/target/queuectl/internal/adapters/shellexec"
	domainjob "github.com/target/queuectl/internal/domain/job"
)

// WorkerRunOptions controls RunWorkers.
type WorkerRunOptions struct {
	// Count overrides WORKER_COUNT when positive.
	Count int
	// Started, when set, receives the worker ids once the pool is running.
	Started func(ids []string)
}

// RunWorkers runs a worker pool (plus the reaper, when enabled) in the
// foreground until SIGINT, SIGTERM or ctx cancellation. The first signal stops
// workers gracefully within WORKER_SHUTDOWN_GRACE; a second one kills them.
func RunWorkers(ctx context.Context, rt *Runtime, opts WorkerRunOptions) error {
	if rt == nil || rt.Config == nil || rt.Store == nil {
		return errors.New("worker runtime is not initialised")
	}
	cfg := rt.Config
	logger := rt.Logger

	count := cfg.Worker.PoolSize(opts.Count)
	if opts.Count > count {
		logger.Warn("worker count capped", "requested", opts.Count, "count", count)
	}

	obs := BuildObservability(logger, cfg.Observability)
	defer func() {
		if err := obs.Close(); err != nil {
			logger.Warn("close metrics client", "error", err)
		}
	}()

	notifier, err := domainjob.NewNotifier(domainjob.NotifierOptions{Waiter: rt.Store})
	if err != nil {
		return fmt.Errorf("create job notifier: %w", err)
	}
	defer notifier.StopAll()

	pool, err := jobrunner.NewPool(jobrunner.PoolOptions{
		Worker: jobrunner.WorkerOptions{
			Store: rt.Store,
			Executor: shellexec.New(shellexec.Options{
				Shell:       cfg.Worker.Shell,
				OutputLimit: cfg.Worker.OutputLimit,
				Logger:      logger,
			}),
			Registry:          rt.Registry,
			Notifier:          notifier,
			Metrics:           obs.Sink,
			PollInterval:      cfg.Worker.PollInterval,
			ErrorBackoff:      cfg.Worker.ErrorBackoff,
			HeartbeatInterval: cfg.Worker.HeartbeatInterval,
			StaleAfter:        cfg.Worker.StaleAfter,
		},
		ShutdownGrace: cfg.Worker.ShutdownGrace,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}

	metricsServer := StartMetricsServer(cfg.Observability.PrometheusAddr, obs.Prometheus, logger)
	defer ShutdownMetricsServer(metricsServer, logger)

	bgCtx, stopBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer stopBackground()
	var background errgroup.Group
	if cfg.Reaper.Enabled {
		runner, runnerErr := reaper.NewRunner(reaper.RunnerOptions{
			Store:      rt.Store,
			Config:     cfg.Reaper,
			StaleAfter: cfg.Worker.StaleAfter,
			Logger:     logger,
			Metrics:    obs.Sink,
		})
		if runnerErr != nil {
			return fmt.Errorf("create reaper: %w", runnerErr)
		}
		background.Go(func() error { return runner.Run(bgCtx) })
	}

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	ids, err := pool.StartWorkers(count)
	if err != nil {
		stopBackground()
		return errors.Join(err, background.Wait())
	}
	if opts.Started != nil {
		opts.Started(ids)
	}

	select {
	case sig := <-quit:
		logger.Info("shutting down workers", "signal", sig.String(), "grace", cfg.Worker.ShutdownGrace)
	case <-ctx.Done():
		logger.Info("shutting down workers", "reason", ctx.Err())
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		pool.StopWorkers()
	}()
	select {
	case <-stopped:
	case sig := <-quit:
		logger.Warn("second signal received, killing workers", "signal", sig.String())
		pool.Kill()
		<-stopped
	}

	stopBackground()
	if err := background.Wait(); err != nil {
		return fmt.Errorf("reaper: %w", err)
	}
	return nil
}

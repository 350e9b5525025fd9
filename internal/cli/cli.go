// Package cli wires the queuectl commands onto cobra.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/target/queuectl/config"
	"github.com/target/queuectl/internal/bootstrap"
	"github.com/target/queuectl/internal/migrate"
	"github.com/target/queuectl/internal/service"
)

// Backend is the connected runtime a command operates on.
type Backend interface {
	Jobs() *service.JobService
	RunWorkers(ctx context.Context, opts bootstrap.WorkerRunOptions) error
	Migrate(ctx context.Context) ([]string, error)
	Close() error
}

// OpenOptions controls how a Backend is opened for one command.
type OpenOptions struct {
	// SkipMigrations is set by the migrate command, which applies them itself.
	SkipMigrations bool
}

// Opener connects a Backend. It is called lazily so that help and flag errors
// never touch the database.
type Opener func(ctx context.Context, opts OpenOptions) (Backend, error)

// Options configures BuildCLI.
type Options struct {
	Open Opener
	Out  io.Writer
	Err  io.Writer
	// Signal delivers a stop request to a worker process. Defaults to SIGTERM.
	Signal func(pid int) error
}

type app struct {
	open   Opener
	signal func(pid int) error
	output string
}

// BuildCLI assembles the root command and all subcommands.
func BuildCLI(opts Options) *cobra.Command {
	a := &app{open: opts.Open, signal: opts.Signal}
	if a.signal == nil {
		a.signal = terminateProcess
	}

	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Postgres-backed shell command job queue",
		Long:          "queuectl enqueues shell commands, runs them on a pool of workers with retries and exponential backoff, and keeps permanently failed jobs in a dead letter queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			_, err := parseOutputFormat(a.output)
			return err
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", string(formatTable), "output format: table, json or yaml")
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}

	root.AddCommand(
		a.buildEnqueueCommand(),
		a.buildWorkerCommand(),
		a.buildStatusCommand(),
		a.buildListCommand(),
		a.buildShowCommand(),
		a.buildDLQCommand(),
		a.buildConfigCommand(),
		a.buildCleanupCommand(),
		a.buildMigrateCommand(),
	)
	return root
}

// Execute runs the CLI against args using the real Postgres-backed runtime.
func Execute(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, args []string) error {
	root := BuildCLI(Options{Open: RuntimeOpener(cfg, logger)})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// RuntimeOpener opens a bootstrap.Runtime for each command.
func RuntimeOpener(cfg *config.AppConfig, logger *slog.Logger) Opener {
	return func(ctx context.Context, opts OpenOptions) (Backend, error) {
		rt, err := bootstrap.NewRuntime(ctx, bootstrap.RuntimeOptions{
			Config:         cfg,
			Logger:         logger,
			SkipMigrations: opts.SkipMigrations,
		})
		if err != nil {
			return nil, err
		}
		return runtimeBackend{rt: rt}, nil
	}
}

type runtimeBackend struct {
	rt *bootstrap.Runtime
}

func (b runtimeBackend) Jobs() *service.JobService { return b.rt.Jobs }

func (b runtimeBackend) RunWorkers(ctx context.Context, opts bootstrap.WorkerRunOptions) error {
	return bootstrap.RunWorkers(ctx, b.rt, opts)
}

func (b runtimeBackend) Migrate(ctx context.Context) ([]string, error) {
	return migrate.Run(ctx, b.rt.DB)
}

func (b runtimeBackend) Close() error { return b.rt.Close() }

// withBackend opens a backend, runs fn and closes the backend again.
func (a *app) withBackend(cmd *cobra.Command, opts OpenOptions, fn func(context.Context, Backend) error) (err error) {
	if a.open == nil {
		return errors.New("no backend configured")
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := a.open(ctx, opts)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		err = errors.Join(err, backend.Close())
	}()
	return fn(ctx, backend)
}

func (a *app) printer(cmd *cobra.Command) printer {
	format, err := parseOutputFormat(a.output)
	if err != nil {
		format = formatTable
	}
	return printer{out: cmd.OutOrStdout(), format: format}
}

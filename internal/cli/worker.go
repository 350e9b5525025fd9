package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/target/queuectl/internal/bootstrap"
	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

func (a *app) buildWorkerCommand() *cobra.Command {
	workerCmd := &cobra.Command{
		Use:   "worker",
		Short: "Run job workers",
	}

	var count int
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start workers in the foreground",
		Long: `Start workers in the foreground. Ctrl+C (or SIGTERM) lets running jobs finish
within WORKER_SHUTDOWN_GRACE; a second Ctrl+C kills them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 0 {
				return apperrors.Validationf("--count must be positive, got %d", count)
			}
			p := a.printer(cmd)
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				err := b.RunWorkers(ctx, bootstrap.WorkerRunOptions{
					Count: count,
					Started: func(ids []string) {
						p.printf("Started %d worker(s): %s\n", len(ids), strings.Join(ids, ", "))
						p.printf("Press Ctrl+C to stop gracefully.\n")
					},
				})
				if err != nil {
					return err
				}
				p.printf("All workers stopped\n")
				return nil
			})
		},
	}
	startCmd.Flags().IntVarP(&count, "count", "n", 0, "number of workers (defaults to WORKER_COUNT)")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Ask workers running on this host to stop gracefully",
		Long: `Send SIGTERM to every worker process on this host that is listed in the
worker registry. Workers finish their current job within WORKER_SHUTDOWN_GRACE.
Requires the Redis worker registry; workers on other hosts are only reported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				workers, err := b.Jobs().Workers(ctx)
				if err != nil {
					return err
				}
				hostname, _ := os.Hostname()
				plan := planWorkerStop(workers, hostname, os.Getpid())

				res := stopResult{Signalled: []int{}, Gone: []int{}, Remote: plan.remote}
				for _, pid := range plan.pids {
					err := a.signal(pid)
					switch {
					case err == nil:
						res.Signalled = append(res.Signalled, pid)
					case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
						res.Gone = append(res.Gone, pid)
					default:
						return fmt.Errorf("signal worker process %d: %w", pid, err)
					}
				}

				p := a.printer(cmd)
				if p.structured() {
					return p.encode(res)
				}
				if len(plan.pids) == 0 && plan.remote == 0 {
					p.printf("No running workers found\n")
					return nil
				}
				if len(res.Signalled) > 0 {
					p.printf("Stop signal sent to %d worker process(es): %s\n", len(res.Signalled), joinPIDs(res.Signalled))
				}
				if len(res.Gone) > 0 {
					p.printf("Already exited: %s\n", joinPIDs(res.Gone))
				}
				if plan.remote > 0 {
					p.printf("Skipped %d worker(s) on other hosts\n", plan.remote)
				}
				return nil
			})
		},
	}

	workerCmd.AddCommand(startCmd, stopCmd)
	return workerCmd
}

type stopResult struct {
	Signalled []int `json:"signalled" yaml:"signalled"`
	Gone      []int `json:"gone"      yaml:"gone"`
	Remote    int   `json:"remote"    yaml:"remote"`
}

type stopPlan struct {
	pids   []int
	remote int
}

// planWorkerStop picks the distinct local worker processes to signal. One
// process usually hosts several workers, and self is never signalled.
func planWorkerStop(workers []model.WorkerInfo, hostname string, self int) stopPlan {
	var plan stopPlan
	for _, w := range workers {
		if w.Hostname != hostname {
			plan.remote++
			continue
		}
		if w.PID <= 0 || w.PID == self || slices.Contains(plan.pids, w.PID) {
			continue
		}
		plan.pids = append(plan.pids, w.PID)
	}
	slices.Sort(plan.pids)
	return plan
}

func terminateProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Signal(syscall.SIGTERM)
}

func joinPIDs(pids []int) string {
	parts := make([]string, len(pids))
	for i, pid := range pids {
		parts[i] = strconv.Itoa(pid)
	}
	return strings.Join(parts, ", ")
}

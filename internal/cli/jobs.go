package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

const (
	listCommandWidth = 50
	dlqCommandWidth  = 40
	dlqErrorWidth    = 60
)

func (a *app) buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show job counts per state and active workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				status, err := b.Jobs().Status(ctx)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(status)
				}
				return printStatus(p, status)
			})
		},
	}
}

func printStatus(p printer, status *model.QueueStatus) error {
	counts := status.Jobs.ByState()
	rows := make([][]string, 0, len(model.AllJobStates)+1)
	for _, state := range model.AllJobStates {
		rows = append(rows, []string{state.String(), strconv.Itoa(counts[state])})
	}
	rows = append(rows, []string{"total", strconv.Itoa(status.Jobs.Total())})
	if err := p.table([]string{"STATE", "COUNT"}, rows); err != nil {
		return err
	}

	if status.Jobs.Deferred > 0 {
		p.printf("\n%d pending job(s) waiting on run_at\n", status.Jobs.Deferred)
	}
	if !status.WorkersTracked {
		p.printf("\nActive workers: unknown (worker registry disabled)\n")
		return nil
	}
	p.printf("\nActive workers: %d\n", status.ActiveWorkers)
	if len(status.Workers) == 0 {
		return nil
	}
	rows = rows[:0]
	for _, w := range status.Workers {
		job := w.JobID
		if job == "" {
			job = "-"
		}
		rows = append(rows, []string{w.ID, w.Hostname, strconv.Itoa(w.PID), job, formatTime(w.LastSeen)})
	}
	return p.table([]string{"WORKER", "HOST", "PID", "JOB", "LAST SEEN"}, rows)
}

func (a *app) buildListCommand() *cobra.Command {
	var (
		state string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := model.JobListOptions{Limit: limit}
			if state != "" {
				s, err := model.ParseJobState(state)
				if err != nil {
					return apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid --state")
				}
				opts.State = &s
			}
			if limit < 0 {
				return apperrors.Validationf("--limit must not be negative")
			}
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				jobs, err := b.Jobs().List(ctx, opts)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(jobs)
				}
				if len(jobs) == 0 {
					p.printf("No jobs found\n")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					rows = append(rows, []string{
						j.ID,
						truncate(j.Command, listCommandWidth),
						j.State.String(),
						fmt.Sprintf("%d/%d", j.Attempts, j.MaxRetries),
						formatTime(j.CreatedAt),
					})
				}
				return p.table([]string{"ID", "COMMAND", "STATE", "ATTEMPTS", "CREATED"}, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&state, "state", "s", "", "filter by state: pending, processing, completed or dead")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of jobs (default 50)")
	return cmd
}

func (a *app) buildShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job including its output and last error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				job, err := b.Jobs().Get(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(job)
				}
				timeout := "-"
				if job.TimeoutSeconds != nil {
					timeout = fmt.Sprintf("%ds", *job.TimeoutSeconds)
				}
				if err := p.table(nil, [][]string{
					{"ID:", job.ID},
					{"Command:", job.Command},
					{"State:", job.State.String()},
					{"Attempts:", fmt.Sprintf("%d/%d", job.Attempts, job.MaxRetries)},
					{"Timeout:", timeout},
					{"Run at:", formatTimePtr(job.RunAt)},
					{"Locked by:", deref(job.LockedBy)},
					{"Locked at:", formatTimePtr(job.LockedAt)},
					{"Created:", formatTime(job.CreatedAt)},
					{"Updated:", formatTime(job.UpdatedAt)},
				}); err != nil {
					return err
				}
				if job.Error != nil && *job.Error != "" {
					p.printf("\nLast error:\n%s\n", *job.Error)
				}
				if job.Output != nil && *job.Output != "" {
					p.printf("\nOutput:\n%s\n", strings.TrimRight(*job.Output, "\n"))
				}
				return nil
			})
		},
	}
}

func (a *app) buildDLQCommand() *cobra.Command {
	dlqCmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and retry dead jobs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the dead letter queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 0 {
				return apperrors.Validationf("--limit must not be negative")
			}
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				jobs, err := b.Jobs().ListDead(ctx, limit)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(jobs)
				}
				if len(jobs) == 0 {
					p.printf("DLQ is empty\n")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, j := range jobs {
					lastErr := "-"
					if j.Error != nil {
						lastErr = truncate(*j.Error, dlqErrorWidth)
					}
					rows = append(rows, []string{
						j.ID,
						truncate(j.Command, dlqCommandWidth),
						strconv.Itoa(j.Attempts),
						lastErr,
					})
				}
				return p.table([]string{"ID", "COMMAND", "ATTEMPTS", "LAST ERROR"}, rows)
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of jobs (default 50)")

	retryCmd := &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Move a dead job back to pending with a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				job, err := b.Jobs().Retry(ctx, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(job)
				}
				p.printf("Job %s moved back to pending\n", job.ID)
				return nil
			})
		},
	}

	dlqCmd.AddCommand(listCmd, retryCmd)
	return dlqCmd
}

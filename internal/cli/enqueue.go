package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
	"github.com/target/queuectl/internal/service"
)

type enqueueFlags struct {
	id         string
	command    string
	maxRetries int
	timeout    int
	runAt      string
	delay      time.Duration
}

func (a *app) buildEnqueueCommand() *cobra.Command {
	var flags enqueueFlags

	cmd := &cobra.Command{
		Use:   "enqueue [job-json]",
		Short: "Add a job to the queue",
		Long: `Add a job to the queue, either from a JSON description or from flags.
Flags override fields of the JSON description.`,
		Example: `  queuectl enqueue '{"id":"job1","command":"echo hello"}'
  queuectl enqueue --command "sleep 2" --max-retries 5 --timeout 30
  queuectl enqueue --command "make report" --delay 10m`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCreateRequest(cmd, args, flags, time.Now())
			if err != nil {
				return err
			}
			return a.withBackend(cmd, OpenOptions{}, func(ctx context.Context, b Backend) error {
				job, err := b.Jobs().Enqueue(ctx, req)
				if err != nil {
					return err
				}
				p := a.printer(cmd)
				if p.structured() {
					return p.encode(job)
				}
				if job.RunAt != nil {
					p.printf("Job %s enqueued (runs at %s)\n", job.ID, formatTime(*job.RunAt))
					return nil
				}
				p.printf("Job %s enqueued\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "job id (generated when omitted)")
	cmd.Flags().StringVarP(&flags.command, "command", "c", "", "shell command to run")
	cmd.Flags().IntVar(&flags.maxRetries, "max-retries", 0, "retry budget (defaults to the max-retries setting)")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 0, "execution timeout in seconds")
	cmd.Flags().StringVar(&flags.runAt, "run-at", "", "earliest start time (RFC 3339)")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "delay before the job becomes eligible")
	cmd.MarkFlagsMutuallyExclusive("run-at", "delay")
	return cmd
}

// buildCreateRequest merges the optional JSON argument with the flags that were set.
func buildCreateRequest(cmd *cobra.Command, args []string, flags enqueueFlags, now time.Time) (*model.CreateJobRequest, error) {
	req := &model.CreateJobRequest{}
	if len(args) == 1 {
		parsed, err := service.ParseJobSpec(args[0])
		if err != nil {
			return nil, err
		}
		req = parsed
	}

	changed := cmd.Flags().Changed
	if changed("id") {
		req.ID = strings.TrimSpace(flags.id)
	}
	if changed("command") {
		req.Command = flags.command
	}
	if changed("max-retries") {
		v := flags.maxRetries
		req.MaxRetries = &v
	}
	if changed("timeout") {
		v := flags.timeout
		req.TimeoutSeconds = &v
	}
	if changed("run-at") {
		runAt, err := time.Parse(time.RFC3339, strings.TrimSpace(flags.runAt))
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid --run-at")
		}
		runAt = runAt.UTC()
		req.RunAt = &runAt
	}
	if changed("delay") {
		if flags.delay < 0 {
			return nil, apperrors.Validationf("--delay must not be negative")
		}
		runAt := now.Add(flags.delay).UTC()
		req.RunAt = &runAt
	}
	return req, nil
}

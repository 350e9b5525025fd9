package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainjob "github.com/target/queuectl/internal/domain/job"
	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

const insertJobSQL = `
  INSERT INTO jobs (id, command, state, attempts, max_retries, created_at, updated_at, run_at, timeout_seconds)
  VALUES (
    $1, $2, 'pending', 0,
    COALESCE($3::integer, (SELECT value FROM queue_config WHERE key = 'max_retries'), 3),
    $4, $4, $5, $6
  )
  RETURNING ` + jobColumns

// acquireJobSQL leases the oldest eligible pending job. SKIP LOCKED keeps
// concurrent acquirers off each other's rows; the state guard on the UPDATE
// makes a lost race return no row instead of a double lease.
var acquireJobSQL = fmt.Sprintf(`
  WITH next AS (
    SELECT id
    FROM jobs
    WHERE state = %[1]s
      AND (run_at IS NULL OR run_at <= $2)
    ORDER BY created_at, id
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs
  SET state = %[2]s, locked_by = $1, locked_at = $2, updated_at = $2
  FROM next
  WHERE jobs.id = next.id AND jobs.state = %[1]s
  RETURNING `, sqlStates(acquireFrom), sqlStates(acquireTo)) + qualifiedJobColumns

const qualifiedJobColumns = `jobs.id, jobs.command, jobs.state, jobs.attempts, jobs.max_retries,
  jobs.created_at, jobs.updated_at, jobs.run_at, jobs.timeout_seconds, jobs.locked_by,
  jobs.locked_at, jobs.error, jobs.output`

// CreateJob inserts a pending job. A missing id gets a UUID; a missing
// max_retries takes the current max_retries config value.
func (r *JobRepo) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job")
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}
	var runAt *time.Time
	if req.RunAt != nil {
		t := req.RunAt.UTC()
		runAt = &t
	}

	var created *model.Job
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		j, qerr := queryOneJob(ctx, conn, insertJobSQL,
			id, strings.TrimSpace(req.Command), req.MaxRetries, r.now(), runAt, req.TimeoutSeconds)
		created = j
		return qerr
	})
	if err != nil {
		mapped := apperrors.MapDBError(err)
		if apperrors.IsConflict(mapped) {
			return nil, apperrors.Wrapf(model.ErrDuplicateID, apperrors.ErrCodeConflict, "job %s", id)
		}
		return nil, wrapf(mapped, "create job")
	}

	r.logger.DebugContext(ctx, "job created", "job_id", created.ID, "max_retries", created.MaxRetries)
	return created, nil
}

// AcquireJob leases the next eligible job to workerID. It returns
// model.ErrNoJobsAvailable when nothing is runnable or the race was lost.
func (r *JobRepo) AcquireJob(ctx context.Context, workerID string) (*model.Job, error) {
	if strings.TrimSpace(workerID) == "" {
		return nil, apperrors.ValidationField("worker_id", "worker id is required")
	}

	var leased *model.Job
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		j, qerr := queryOneJob(ctx, conn, acquireJobSQL, workerID, r.now())
		leased = j
		return qerr
	})
	if isNoRows(err) {
		return nil, model.ErrNoJobsAvailable
	}
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "acquire job")
	}
	return leased, nil
}

// CompleteJob marks a job completed, clears its lease and stores output.
// Calling it again on a completed job only refreshes output and updated_at.
func (r *JobRepo) CompleteJob(ctx context.Context, id string, output *string) (*model.Job, error) {
	var done *model.Job
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		j, qerr := queryOneJob(ctx, conn, `
      UPDATE jobs
      SET state = $4, locked_by = NULL, locked_at = NULL, output = $2, updated_at = $3
      WHERE id = $1
      RETURNING `+jobColumns,
			id, nullableText(output, r.truncate), r.now(), completeTo.String())
		done = j
		return qerr
	})
	if isNoRows(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "complete job %s", id)
	}
	return done, nil
}

// FailJob records a failed execution. The row is locked while the retry
// decision is made so concurrent failures of the same job serialise. A job that
// is no longer processing (its lease was swept, or it already finished) is
// left alone and reported as a conflict.
func (r *JobRepo) FailJob(ctx context.Context, id, errMsg string) (*model.Job, error) {
	var failed *model.Job
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var state model.JobState
		var attempts, maxRetries, base int
		if err := tx.QueryRow(ctx, `
      SELECT state, attempts, max_retries,
        COALESCE((SELECT value FROM queue_config WHERE key = 'backoff_base'), $2)
      FROM jobs
      WHERE id = $1
      FOR UPDATE`, id, model.DefaultBackoffBase).Scan(&state, &attempts, &maxRetries, &base); err != nil {
			return err
		}

		now := r.now()
		decision, err := domainjob.DecideFailure(domainjob.FailureInput{
			State:       state,
			Attempts:    attempts,
			MaxRetries:  maxRetries,
			BackoffBase: base,
			Now:         now,
		})
		if err != nil {
			return apperrors.Wrapf(err, apperrors.ErrCodeConflict, "job %s (state: %s)", id, state)
		}

		j, err := queryOneJob(ctx, tx, `
      UPDATE jobs
      SET state = $2, attempts = $3, error = $4, updated_at = $5,
          run_at = COALESCE($6::timestamptz, run_at),
          locked_by = NULL, locked_at = NULL
      WHERE id = $1
      RETURNING `+jobColumns,
			id, decision.State.String(), decision.Attempts, r.truncate(errMsg), now, decision.RunAt)
		failed = j
		return err
	})
	if isNoRows(err) {
		return nil, notFound(id)
	}
	if errors.Is(err, model.ErrInvalidTransition) {
		return nil, err
	}
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "fail job %s", id)
	}

	if failed.State == model.JobStateDead {
		r.logger.WarnContext(ctx, "job moved to dead letter queue",
			"job_id", id, "attempts", failed.Attempts, "error", errMsg)
	} else {
		r.logger.InfoContext(ctx, "job scheduled for retry",
			"job_id", id, "attempts", failed.Attempts, "run_at", failed.RunAt)
	}
	return failed, nil
}

// RetryFromDLQ moves a dead job back to pending with a fresh retry budget.
func (r *JobRepo) RetryFromDLQ(ctx context.Context, id string) (*model.Job, error) {
	var retried *model.Job
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var state model.JobState
		if err := tx.QueryRow(ctx, `SELECT state FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&state); err != nil {
			return err
		}
		to, err := model.Transition(state, model.EventManualRetry)
		if err != nil {
			return apperrors.Wrapf(model.ErrNotInDLQ, apperrors.ErrCodeNotInDLQ, "job %s (state: %s)", id, state)
		}

		j, err := queryOneJob(ctx, tx, `
      UPDATE jobs
      SET state = $3, attempts = 0, error = NULL, run_at = NULL, updated_at = $2
      WHERE id = $1
      RETURNING `+jobColumns, id, r.now(), to.String())
		retried = j
		return err
	})
	if isNoRows(err) {
		return nil, notFound(id)
	}
	if apperrors.IsNotInDLQ(err) {
		return nil, err
	}
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "retry job %s", id)
	}
	return retried, nil
}

// GetJob returns a single job by id.
func (r *JobRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var found *model.Job
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		j, qerr := queryOneJob(ctx, conn, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		found = j
		return qerr
	})
	if isNoRows(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "get job %s", id)
	}
	return found, nil
}

// WaitForNotification blocks until a NOTIFY arrives on channel or ctx ends.
func (r *JobRepo) WaitForNotification(ctx context.Context, channel string) error {
	return r.withConn(ctx, func(conn *pgx.Conn) error {
		quoted := pgx.Identifier{channel}.Sanitize()
		if _, err := conn.Exec(ctx, "LISTEN "+quoted); err != nil {
			return wrapf(err, "listen %s", channel)
		}
		defer func() {
			// The connection returns to the pool, so always drop the subscription.
			if _, err := conn.Exec(context.Background(), "UNLISTEN "+quoted); err != nil {
				r.logger.Debug("unlisten failed", "channel", channel, "error", err)
			}
		}()

		_, err := conn.WaitForNotification(ctx)
		return err
	})
}

func notFound(id string) error {
	return apperrors.Wrapf(model.ErrJobNotFound, apperrors.ErrCodeNotFound, "job %s", id)
}

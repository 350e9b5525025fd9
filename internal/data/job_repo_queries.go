package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// ListJobs returns jobs newest first, optionally filtered by state.
func (r *JobRepo) ListJobs(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if opts.State != nil {
		if !opts.State.Valid() {
			return nil, apperrors.ValidationField("state", fmt.Sprintf("invalid job state: %q", *opts.State))
		}
		query += ` WHERE state = $1`
		args = append(args, *opts.State)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	var result []*model.Job
	err := r.withConn(ctx, func(conn *pgx.Conn) error {
		jobs, qerr := queryJobs(ctx, conn, query, args...)
		result = jobs
		return qerr
	})
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "list jobs")
	}
	return result, nil
}

// GetStats returns job counts per state. Deferred counts the pending jobs whose run_at is still ahead.
func (r *JobRepo) GetStats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE state = 'pending')                     AS pending,
    count(*) FILTER (WHERE state = 'pending' AND run_at > $1)     AS deferred,
    count(*) FILTER (WHERE state = 'processing')                  AS processing,
    count(*) FILTER (WHERE state = 'completed')                   AS completed,
    count(*) FILTER (WHERE state = 'dead')                        AS dead
  FROM jobs
  `, r.now()).Scan(&s.Pending, &s.Deferred, &s.Processing, &s.Completed, &s.Dead)
	if err != nil {
		return nil, wrapf(apperrors.MapDBError(err), "get job stats")
	}
	return &s, nil
}

package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/target/queuectl/internal/data/pgxutil"
	domainjob "github.com/target/queuectl/internal/domain/job"
	"github.com/target/queuectl/internal/domain/model"
	apperrors "github.com/target/queuectl/internal/errors"
)

// Advisory lock namespace for maintenance sweeps, taken with the two-argument
// pg_try_advisory_xact_lock(major, minor). A sweep that loses the lock is
// skipped; another process is already doing the same work.
const (
	advisoryLockSweepMajor   = 1000
	advisoryLockStaleLeases  = 1
	advisoryLockCleanupMinor = 2
)

var releaseStaleSQL = fmt.Sprintf(`
    UPDATE jobs
    SET state = %s, locked_by = NULL, locked_at = NULL, updated_at = $1
    WHERE state = %s AND locked_at < $2
  `, sqlStates(staleLeaseTo), sqlStates(staleLeaseFrom))

var cleanupSQL = fmt.Sprintf(`
    DELETE FROM jobs
    WHERE state IN (%s) AND updated_at < $1
  `, sqlStates(model.TerminalStates()...))

// ReleaseStaleLeases returns processing jobs whose lease is older than staleAfter
// to pending. Attempts are left unchanged; a crash is not a failed execution.
func (r *JobRepo) ReleaseStaleLeases(ctx context.Context, staleAfter time.Duration) (int64, error) {
	policy, err := domainjob.NewLeasePolicy(staleAfter)
	if err != nil {
		return 0, apperrors.ValidationField("stale_after", err.Error())
	}

	now := r.now()
	released, err := r.sweep(ctx, advisoryLockStaleLeases, releaseStaleSQL, now, policy.Cutoff(now))
	if err != nil {
		return 0, fmt.Errorf("release stale leases: %w", err)
	}
	if released > 0 {
		r.logger.WarnContext(ctx, "released stale leases", "count", released, "stale_after", staleAfter)
	}
	return released, nil
}

// CleanupOlderThan deletes completed jobs last updated more than retentionDays ago.
// Dead jobs are kept until an operator retries them.
func (r *JobRepo) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 0 {
		return 0, apperrors.ValidationField("days", "retention days must be >= 0")
	}

	cutoff := r.now().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	deleted, err := r.sweep(ctx, advisoryLockCleanupMinor, cleanupSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup completed jobs: %w", err)
	}
	if deleted > 0 {
		r.logger.InfoContext(ctx, "deleted completed jobs", "count", deleted, "retention_days", retentionDays)
	}
	return deleted, nil
}

// sweep runs stmt under the maintenance advisory lock and returns the affected row count.
func (r *JobRepo) sweep(ctx context.Context, minor int, stmt string, args ...any) (int64, error) {
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1::integer, $2::integer)",
				advisoryLockSweepMajor, minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := tx.ExecContext(ctx, stmt, args...)
			if err != nil {
				return err
			}
			affected, err = res.RowsAffected()
			return err
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return affected, nil
}

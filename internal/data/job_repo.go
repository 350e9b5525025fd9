// Package data implements the Postgres-backed durable store for queued jobs.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/target/queuectl/internal/core"
	"github.com/target/queuectl/internal/data/pgxutil"
	"github.com/target/queuectl/internal/domain/model"
)

// DefaultOutputLimit caps stored command output when RepoConfig.OutputLimit is unset.
const DefaultOutputLimit = 64 * 1024

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// OutputLimit is the maximum number of bytes of output or error text stored per job.
	OutputLimit int
}

// JobRepo is the durable job store. All state changes are single statements or
// short transactions, so any number of worker processes can share one database.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
	outputLimit  int
}

var _ core.JobStore = (*JobRepo)(nil)

// NewJobRepo creates a JobRepo on an *sql.DB opened with the pgx driver.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       logger.With("component", "job_repo"),
		outputLimit:  limit,
	}
}

const jobColumns = `id, command, state, attempts, max_retries, created_at, updated_at,
  run_at, timeout_seconds, locked_by, locked_at, error, output`

func (r *JobRepo) now() time.Time {
	return r.timeProvider.Now().UTC()
}

// queryOneJob runs a statement expected to return exactly one job row.
func queryOneJob(ctx context.Context, q pgxQuerier, query string, args ...any) (*model.Job, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[model.Job])
}

// queryJobs runs a statement returning zero or more job rows.
func queryJobs(ctx context.Context, q pgxQuerier, query string, args ...any) ([]*model.Job, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Job])
}

// pgxQuerier is satisfied by both *pgx.Conn and pgx.Tx.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *JobRepo) withConn(ctx context.Context, fn func(*pgx.Conn) error) error {
	return pgxutil.WithPgxConn(ctx, r.DB, fn)
}

func (r *JobRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn:   fn,
	})
}

// truncate caps s at the configured byte limit without splitting a UTF-8 sequence.
func (r *JobRepo) truncate(s string) string {
	if len(s) <= r.outputLimit {
		return s
	}
	const marker = "\n...[truncated]"
	cut := r.outputLimit - len(marker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}

func nullableText(s *string, truncate func(string) string) *string {
	if s == nil {
		return nil
	}
	v := truncate(*s)
	return &v
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/queuectl/internal/domain/model"
	"github.com/target/queuectl/internal/testutil"
)

func TestJobRepo_ReleaseStaleLeases(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()

		_, err := repo.CreateJob(ctx, testutil.NewJobRequest().WithID("crashed").Build())
		require.NoError(t, err)
		_, err = repo.AcquireJob(ctx, "worker-dead")
		require.NoError(t, err)

		clock.AddTime(6 * time.Minute)

		_, err = repo.CreateJob(ctx, testutil.NewJobRequest().WithID("fresh").Build())
		require.NoError(t, err)
		_, err = repo.AcquireJob(ctx, "worker-live")
		require.NoError(t, err)

		released, err := repo.ReleaseStaleLeases(ctx, 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, int64(1), released)

		crashed, err := repo.GetJob(ctx, "crashed")
		require.NoError(t, err)
		assert.Equal(t, model.JobStatePending, crashed.State)
		assert.Equal(t, 0, crashed.Attempts)
		assert.False(t, crashed.Leased())

		fresh, err := repo.GetJob(ctx, "fresh")
		require.NoError(t, err)
		assert.Equal(t, model.JobStateProcessing, fresh.State)

		reacquired, err := repo.AcquireJob(ctx, "worker-live")
		require.NoError(t, err)
		assert.Equal(t, "crashed", reacquired.ID)
	})
}

func TestJobRepo_ReleaseStaleLeases_InvalidThreshold(t *testing.T) {
	repo := NewJobRepo(nil, RepoConfig{})
	_, err := repo.ReleaseStaleLeases(context.Background(), 0)
	require.Error(t, err)
}

func TestJobRepo_CleanupOlderThan(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo, clock := newTestRepo(db)
		ctx := context.Background()

		// old completed, old dead, old pending
		_, err := repo.CreateJob(ctx, testutil.NewJobRequest().WithID("old-done").Build())
		require.NoError(t, err)
		_, err = repo.AcquireJob(ctx, "w")
		require.NoError(t, err)
		_, err = repo.CompleteJob(ctx, "old-done", nil)
		require.NoError(t, err)

		_, err = repo.CreateJob(ctx, testutil.NewJobRequest().WithID("old-dead").WithMaxRetries(0).Build())
		require.NoError(t, err)
		_, err = repo.AcquireJob(ctx, "w")
		require.NoError(t, err)
		_, err = repo.FailJob(ctx, "old-dead", "boom")
		require.NoError(t, err)

		_, err = repo.CreateJob(ctx, testutil.NewJobRequest().WithID("old-pending").
			WithRunAt(clock.Now().Add(30*24*time.Hour)).Build())
		require.NoError(t, err)

		clock.AddTime(8 * 24 * time.Hour)

		_, err = repo.CreateJob(ctx, testutil.NewJobRequest().WithID("new-done").Build())
		require.NoError(t, err)
		_, err = repo.AcquireJob(ctx, "w")
		require.NoError(t, err)
		_, err = repo.CompleteJob(ctx, "new-done", nil)
		require.NoError(t, err)

		deleted, err := repo.CleanupOlderThan(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		_, err = repo.GetJob(ctx, "old-done")
		require.Error(t, err)
		for _, id := range []string{"old-dead", "old-pending", "new-done"} {
			_, err = repo.GetJob(ctx, id)
			assert.NoError(t, err, id)
		}
	})
}

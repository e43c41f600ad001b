package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
)

func TestGormContinuationStore_ScheduleAndCancel(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormContinuationStore(db)
	ctx := context.Background()
	runID := uuid.New()

	t.Run("cancel-then-schedule leaves exactly one pending", func(t *testing.T) {
		// Simulate the completion protocol firing twice for the same stage:
		// each pass cancels everything under the prefix before scheduling.
		for i := 0; i < 2; i++ {
			require.NoError(t, store.CancelAllMatching(ctx, pipeline.StagePrefix))
			require.NoError(t, store.ScheduleOnce(ctx,
				pipeline.NewContinuation(runID, pipeline.StageAds, time.Minute)))
		}

		pending, err := store.PendingMatching(ctx, pipeline.StagePrefix)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, pipeline.StageAds, pending[0].Stage)
		assert.Equal(t, runID, pending[0].RunID)
	})

	t.Run("cancel removes all continuations under the prefix", func(t *testing.T) {
		require.NoError(t, store.ScheduleOnce(ctx,
			pipeline.NewContinuation(runID, pipeline.StageListings, time.Minute)))
		require.NoError(t, store.CancelAllMatching(ctx, pipeline.StagePrefix))

		pending, err := store.PendingMatching(ctx, pipeline.StagePrefix)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestGormContinuationStore_Due(t *testing.T) {
	db := setupTestDB(t)
	store := NewGormContinuationStore(db)
	ctx := context.Background()
	runID := uuid.New()
	now := time.Now()

	past := pipeline.NewContinuation(runID, pipeline.StageOrders, 0)
	past.FireAt = now.Add(-2 * time.Minute)
	older := pipeline.NewContinuation(runID, pipeline.StageAds, 0)
	older.FireAt = now.Add(-5 * time.Minute)
	future := pipeline.NewContinuation(runID, pipeline.StageListings, 0)
	future.FireAt = now.Add(10 * time.Minute)

	for _, c := range []*pipeline.Continuation{past, older, future} {
		require.NoError(t, store.ScheduleOnce(ctx, c))
	}

	t.Run("returns only elapsed continuations oldest first", func(t *testing.T) {
		due, err := store.Due(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, older.ID, due[0].ID)
		assert.Equal(t, past.ID, due[1].ID)
	})

	t.Run("respects the limit", func(t *testing.T) {
		due, err := store.Due(ctx, now, 1)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, older.ID, due[0].ID)
	})

	t.Run("delete removes a claimed continuation", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, older.ID))

		due, err := store.Due(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, past.ID, due[0].ID)
	})
}

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bolsas-cloud/fullsync/internal/domain/replenish"
)

func TestGormResultRepository_ReplaceAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormResultRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	first := []replenish.Result{
		{ListingID: "MLA1", Title: "Bolsa kraft", Class: replenish.ClassA, RecommendedQty: 40, ComputedAt: now},
		{ListingID: "MLA2", Title: "Bolsa tela", Class: replenish.ClassC, RecommendedQty: 0, ComputedAt: now},
	}

	t.Run("writes initial results", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, first))

		results, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("replaces prior results entirely", func(t *testing.T) {
		second := []replenish.Result{
			{ListingID: "MLA3", Title: "Bolsa nueva", Class: replenish.ClassB, RecommendedQty: 12, ComputedAt: now.Add(time.Hour)},
		}
		require.NoError(t, repo.ReplaceAll(ctx, second))

		results, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, results, 1, "no rows from the previous computation survive")
		assert.Equal(t, "MLA3", results[0].ListingID)
	})

	t.Run("empty computation clears the table", func(t *testing.T) {
		require.NoError(t, repo.ReplaceAll(ctx, nil))

		results, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

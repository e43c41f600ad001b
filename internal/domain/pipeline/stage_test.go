package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageOrder(t *testing.T) {
	assert.Equal(t, StageOrders, FirstStage())

	next, ok := NextStage(StageOrders)
	require.True(t, ok)
	assert.Equal(t, StageAds, next)

	next, ok = NextStage(StageAds)
	require.True(t, ok)
	assert.Equal(t, StageInventoryIDs, next)

	next, ok = NextStage(StageInventoryIDs)
	require.True(t, ok)
	assert.Equal(t, StageListings, next)

	_, ok = NextStage(StageListings)
	assert.False(t, ok, "listings is the terminal stage")

	_, ok = NextStage("pipeline.bogus")
	assert.False(t, ok)
}

func TestStageNamesCarryReservedPrefix(t *testing.T) {
	for _, s := range []StageName{StageOrders, StageAds, StageInventoryIDs, StageListings} {
		assert.True(t, strings.HasPrefix(string(s), StagePrefix), "stage %s", s)
		assert.True(t, IsValidStage(s))
	}
	assert.False(t, IsValidStage("pipeline.unknown"))
}

func TestRun_Lifecycle(t *testing.T) {
	run := NewRun()
	assert.Equal(t, StageOrders, run.CurrentStage)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.True(t, run.IsActive())

	run.Advance(StageAds)
	assert.Equal(t, StageAds, run.CurrentStage)

	run.Complete()
	assert.Equal(t, RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)
	assert.False(t, run.IsActive())
}

func TestRun_FailureStreak(t *testing.T) {
	run := NewRun()

	tripped := run.RecordFailure(errors.New("boom"), 3)
	assert.False(t, tripped)
	assert.Equal(t, 1, run.ConsecutiveFailures)
	assert.Equal(t, "boom", run.LastError)

	// the streak survives stage boundaries
	run.Advance(StageAds)
	assert.False(t, run.RecordFailure(errors.New("boom again"), 3))
	assert.True(t, run.RecordFailure(errors.New("boom thrice"), 3))

	run.RecordSuccess()
	assert.Zero(t, run.ConsecutiveFailures)
	assert.Empty(t, run.LastError)
}

func TestRun_Fail(t *testing.T) {
	run := NewRun()
	run.Fail("too many consecutive stage failures")
	assert.Equal(t, RunStatusFailed, run.Status)
	assert.NotNil(t, run.CompletedAt)
	assert.False(t, run.IsActive())
}

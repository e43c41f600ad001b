package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Continuation is a scheduled future invocation of a stage: the only durable
// indicator of pipeline progress between invocations. The scheduler guarantees
// at-least-the-configured-delay before firing, never an upper bound.
type Continuation struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	RunID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Stage     StageName `gorm:"type:varchar(60);not null;index"`
	FireAt    time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Continuation) TableName() string {
	return "pipeline_continuations"
}

// NewContinuation schedules a stage invocation after the given delay
func NewContinuation(runID uuid.UUID, stage StageName, delay time.Duration) *Continuation {
	return &Continuation{
		ID:     uuid.New(),
		RunID:  runID,
		Stage:  stage,
		FireAt: time.Now().Add(delay),
	}
}

// ContinuationStore is the durable timer facility backing the pipeline.
// It mirrors the external scheduler boundary: schedule-once plus
// cancel-all-matching-prefix, with best-effort delivery semantics.
type ContinuationStore interface {
	// ScheduleOnce persists a single future invocation
	ScheduleOnce(ctx context.Context, c *Continuation) error
	// CancelAllMatching removes every pending continuation whose stage name
	// starts with the given prefix
	CancelAllMatching(ctx context.Context, prefix string) error
	// Due returns continuations whose fire time has passed, oldest first
	Due(ctx context.Context, now time.Time, limit int) ([]Continuation, error)
	// Delete removes a single continuation after it has been claimed
	Delete(ctx context.Context, id uuid.UUID) error
	// PendingMatching returns pending continuations whose stage name starts
	// with the given prefix, for monitoring and tests
	PendingMatching(ctx context.Context, prefix string) ([]Continuation, error)
}

package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a pipeline run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// Run is the durable record of one pass through the pipeline. It replaces a
// global "next stage" pointer with an explicit run record keyed by run ID, so
// overlapping triggers are detectable and rejected rather than silently racing.
type Run struct {
	ID                  uuid.UUID `gorm:"type:uuid;primary_key"`
	CurrentStage        StageName `gorm:"type:varchar(60);not null"`
	Status              RunStatus `gorm:"type:varchar(20);not null;index"`
	ConsecutiveFailures int       `gorm:"not null;default:0"`
	LastError           string    `gorm:"type:text"`
	StartedAt           time.Time `gorm:"not null"`
	CompletedAt         *time.Time
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Run) TableName() string {
	return "pipeline_runs"
}

// NewRun creates a run positioned at the entry stage
func NewRun() *Run {
	return &Run{
		ID:           uuid.New(),
		CurrentStage: FirstStage(),
		Status:       RunStatusRunning,
		StartedAt:    time.Now(),
	}
}

// Advance moves the run to the given stage and resets nothing else: the
// consecutive-failure counter deliberately survives stage boundaries so a
// chain failing at every stage still trips the dead-letter limit.
func (r *Run) Advance(next StageName) {
	r.CurrentStage = next
}

// RecordFailure notes a stage error on the run and reports whether the
// configured consecutive-failure limit has been reached
func (r *Run) RecordFailure(err error, maxConsecutive int) bool {
	r.ConsecutiveFailures++
	r.LastError = err.Error()
	return r.ConsecutiveFailures >= maxConsecutive
}

// RecordSuccess clears the failure streak after a stage completes cleanly
func (r *Run) RecordSuccess() {
	r.ConsecutiveFailures = 0
	r.LastError = ""
}

// Complete marks the run as finished. The completion timestamp is the only
// persisted success signal and the authoritative way to detect a stalled chain.
func (r *Run) Complete() {
	now := time.Now()
	r.Status = RunStatusCompleted
	r.CompletedAt = &now
}

// Fail marks the run as dead
func (r *Run) Fail(reason string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.LastError = reason
	r.CompletedAt = &now
}

// IsActive reports whether the run is still progressing through stages
func (r *Run) IsActive() bool {
	return r.Status == RunStatusRunning
}

// RunRepository persists pipeline run records
type RunRepository interface {
	Create(ctx context.Context, run *Run) error
	Update(ctx context.Context, run *Run) error
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)
	// FindLatest returns the most recently started run, or nil when none exists
	FindLatest(ctx context.Context) (*Run, error)
}

// Lease serializes pipeline execution: a run acquires the lease before its
// first stage and holds it until completion or failure. The TTL is generous so
// a crashed run eventually frees the chain without operator action.
type Lease interface {
	// Acquire returns true when the lease was free and is now held
	Acquire(ctx context.Context, runID uuid.UUID, ttl time.Duration) (bool, error)
	// Release frees the lease if held by the given run
	Release(ctx context.Context, runID uuid.UUID) error
}

package pipeline

import (
	"context"
	"errors"
)

var (
	// ErrUnknownStage indicates a continuation targeting a stage that is not registered
	ErrUnknownStage = errors.New("pipeline: unknown stage")
	// ErrAuthFailed indicates a stage could not acquire credentials.
	// Non-retryable: the chain stops instead of scheduling a successor that
	// would fail identically.
	ErrAuthFailed = errors.New("pipeline: credential acquisition failed")
	// ErrRunNotFound indicates a continuation referencing a missing run record
	ErrRunNotFound = errors.New("pipeline: run not found")
	// ErrRunInProgress indicates a trigger while another run holds the lease
	ErrRunInProgress = errors.New("pipeline: a run is already in progress")
)

// StagePrefix is the reserved naming prefix for pipeline continuations.
// Cancel-all-matching uses it to guarantee at most one pending continuation.
const StagePrefix = "pipeline."

// StageName identifies one unit of the synchronization pipeline
type StageName string

// The four stages, in fixed total order
const (
	StageOrders       StageName = StagePrefix + "orders"
	StageAds          StageName = StagePrefix + "ads"
	StageInventoryIDs StageName = StagePrefix + "inventory_ids"
	StageListings     StageName = StagePrefix + "listings"
)

// stageOrder is the fixed execution sequence
var stageOrder = []StageName{StageOrders, StageAds, StageInventoryIDs, StageListings}

// FirstStage returns the entry stage of the pipeline
func FirstStage() StageName {
	return stageOrder[0]
}

// NextStage returns the successor of the given stage, or false when the stage
// is terminal or unknown
func NextStage(s StageName) (StageName, bool) {
	for i, name := range stageOrder {
		if name == s && i+1 < len(stageOrder) {
			return stageOrder[i+1], true
		}
	}
	return "", false
}

// IsValidStage reports whether the name is one of the pipeline's stages
func IsValidStage(s StageName) bool {
	for _, name := range stageOrder {
		if name == s {
			return true
		}
	}
	return false
}

// Stage is one independently-invocable unit of the synchronization pipeline.
// Execute must be idempotent: delivery is at-least-once and a stage may be
// re-invoked after a crash or a delayed continuation, so all writes follow
// read-then-upsert semantics rather than blind append.
type Stage interface {
	Name() StageName
	Execute(ctx context.Context, run *Run) error
}

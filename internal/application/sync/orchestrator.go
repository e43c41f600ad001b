package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
	"github.com/bolsas-cloud/fullsync/internal/domain/settings"
)

// isAuthErr reports whether the error is a credential failure
func isAuthErr(err error) bool {
	return errors.Is(err, pipeline.ErrAuthFailed)
}

// OrchestratorConfig holds the pipeline chaining parameters
type OrchestratorConfig struct {
	// StageDelay is the settle delay between a stage completing and its
	// successor firing
	StageDelay time.Duration
	// LeaseTTL bounds how long a crashed run can block the chain
	LeaseTTL time.Duration
	// MaxConsecutiveFailures is the dead-letter limit
	MaxConsecutiveFailures int
}

// DefaultOrchestratorConfig returns the standard chaining parameters
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		StageDelay:             time.Minute,
		LeaseTTL:               2 * time.Hour,
		MaxConsecutiveFailures: 3,
	}
}

// Status is a point-in-time view of the pipeline for operators
type Status struct {
	LatestRun      *pipeline.Run
	Pending        []pipeline.Continuation
	LastCompletion time.Time
}

// Orchestrator owns the pipeline's control flow: triggering runs, executing
// stages when their continuations fire, and chaining successors under the
// cancel-then-schedule protocol. It is the only writer of run records and
// continuations.
type Orchestrator struct {
	config        OrchestratorConfig
	runs          pipeline.RunRepository
	continuations pipeline.ContinuationStore
	lease         pipeline.Lease
	settings      settings.Store
	stages        map[pipeline.StageName]pipeline.Stage
	logger        *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given stages
func NewOrchestrator(
	config OrchestratorConfig,
	runs pipeline.RunRepository,
	continuations pipeline.ContinuationStore,
	lease pipeline.Lease,
	settingsStore settings.Store,
	stages []pipeline.Stage,
	logger *zap.Logger,
) *Orchestrator {
	registry := make(map[pipeline.StageName]pipeline.Stage, len(stages))
	for _, s := range stages {
		registry[s.Name()] = s
	}
	return &Orchestrator{
		config:        config,
		runs:          runs,
		continuations: continuations,
		lease:         lease,
		settings:      settingsStore,
		stages:        registry,
		logger:        logger.Named("orchestrator"),
	}
}

// TriggerRun starts a new pipeline run. Returns ErrRunInProgress while another
// run holds the lease.
func (o *Orchestrator) TriggerRun(ctx context.Context) (*pipeline.Run, error) {
	run := pipeline.NewRun()

	held, err := o.lease.Acquire(ctx, run.ID, o.config.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquiring pipeline lease: %w", err)
	}
	if !held {
		return nil, pipeline.ErrRunInProgress
	}

	if err := o.runs.Create(ctx, run); err != nil {
		_ = o.lease.Release(ctx, run.ID)
		return nil, fmt.Errorf("creating run record: %w", err)
	}

	// The entry stage fires immediately; the settle delay only applies
	// between stages
	if err := o.scheduleExactlyOne(ctx, run.ID, pipeline.FirstStage(), 0); err != nil {
		_ = o.lease.Release(ctx, run.ID)
		return nil, err
	}

	o.logger.Info("Pipeline run triggered",
		zap.String("run_id", run.ID.String()),
		zap.String("first_stage", string(pipeline.FirstStage())),
	)
	return run, nil
}

// ExecuteStage runs one stage invocation for the given run and chains the
// successor. Called by the continuation driver when a timer fires.
func (o *Orchestrator) ExecuteStage(ctx context.Context, runID uuid.UUID, stageName pipeline.StageName) error {
	run, err := o.runs.FindByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("%w: %s", pipeline.ErrRunNotFound, runID)
	}
	if !run.IsActive() {
		// Stale continuation from a run that already finished or was
		// dead-lettered; firing it would resurrect a closed run
		o.logger.Warn("Ignoring continuation for inactive run",
			zap.String("run_id", runID.String()),
			zap.String("stage", string(stageName)),
			zap.String("status", string(run.Status)),
		)
		return nil
	}
	if stageName != run.CurrentStage {
		o.logger.Warn("Ignoring continuation out of step with run",
			zap.String("run_id", runID.String()),
			zap.String("fired_stage", string(stageName)),
			zap.String("current_stage", string(run.CurrentStage)),
		)
		return nil
	}

	stage, ok := o.stages[stageName]
	if !ok {
		return fmt.Errorf("%w: %s", pipeline.ErrUnknownStage, stageName)
	}

	execErr := stage.Execute(ctx, run)
	if execErr == nil {
		run.RecordSuccess()
		return o.advance(ctx, run)
	}

	o.logger.Error("Stage failed",
		zap.String("run_id", run.ID.String()),
		zap.String("stage", string(stageName)),
		zap.Error(execErr),
	)

	if isAuthErr(execErr) {
		// Scheduling a successor that will fail identically is a retry storm
		return o.abort(ctx, run, fmt.Sprintf("credential failure at %s: %v", stageName, execErr))
	}

	if dead := run.RecordFailure(execErr, o.config.MaxConsecutiveFailures); dead {
		return o.abort(ctx, run, fmt.Sprintf("dead-letter limit reached at %s: %v", stageName, execErr))
	}

	if _, ok := pipeline.NextStage(run.CurrentStage); !ok {
		// The terminal stage has no successor to advance to, and completing
		// here would record a success timestamp the stage never earned.
		// Retry it; the dead-letter limit bounds the retries.
		return o.retry(ctx, run)
	}

	// Stages are idempotent, so advancing past a transient failure is safe:
	// the next full run re-covers the skipped data
	return o.advance(ctx, run)
}

// Status returns the current pipeline state for operators
func (o *Orchestrator) Status(ctx context.Context) (*Status, error) {
	latest, err := o.runs.FindLatest(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := o.continuations.PendingMatching(ctx, pipeline.StagePrefix)
	if err != nil {
		return nil, err
	}
	last, err := settings.LastCompletion(ctx, o.settings)
	if err != nil {
		return nil, err
	}
	return &Status{LatestRun: latest, Pending: pending, LastCompletion: last}, nil
}

// advance moves the run to its successor stage or completes it
func (o *Orchestrator) advance(ctx context.Context, run *pipeline.Run) error {
	next, ok := pipeline.NextStage(run.CurrentStage)
	if !ok {
		return o.complete(ctx, run)
	}

	run.Advance(next)
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("persisting run advance: %w", err)
	}
	return o.scheduleExactlyOne(ctx, run.ID, next, o.config.StageDelay)
}

// retry re-schedules the run's current stage after a failure
func (o *Orchestrator) retry(ctx context.Context, run *pipeline.Run) error {
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("persisting run failure: %w", err)
	}
	return o.scheduleExactlyOne(ctx, run.ID, run.CurrentStage, o.config.StageDelay)
}

// complete closes the run successfully: clear pending continuations, record
// the completion timestamp and free the lease
func (o *Orchestrator) complete(ctx context.Context, run *pipeline.Run) error {
	if err := o.continuations.CancelAllMatching(ctx, pipeline.StagePrefix); err != nil {
		return fmt.Errorf("clearing continuations: %w", err)
	}

	run.Complete()
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("persisting run completion: %w", err)
	}

	if err := settings.RecordCompletion(ctx, o.settings, *run.CompletedAt); err != nil {
		o.logger.Error("Failed to record completion timestamp", zap.Error(err))
	}
	if err := o.lease.Release(ctx, run.ID); err != nil {
		o.logger.Error("Failed to release pipeline lease", zap.Error(err))
	}

	o.logger.Info("Pipeline run completed", zap.String("run_id", run.ID.String()))
	return nil
}

// abort dead-letters the run: no successor, continuations cleared, lease freed
func (o *Orchestrator) abort(ctx context.Context, run *pipeline.Run, reason string) error {
	if err := o.continuations.CancelAllMatching(ctx, pipeline.StagePrefix); err != nil {
		o.logger.Error("Failed to clear continuations on abort", zap.Error(err))
	}

	run.Fail(reason)
	if err := o.runs.Update(ctx, run); err != nil {
		return fmt.Errorf("persisting run failure: %w", err)
	}

	if err := o.lease.Release(ctx, run.ID); err != nil {
		o.logger.Error("Failed to release pipeline lease", zap.Error(err))
	}

	o.logger.Error("Pipeline run aborted",
		zap.String("run_id", run.ID.String()),
		zap.String("reason", reason),
	)
	return nil
}

// scheduleExactlyOne enforces the cancel-then-schedule protocol: after it
// returns, exactly one pipeline continuation is pending
func (o *Orchestrator) scheduleExactlyOne(ctx context.Context, runID uuid.UUID, stage pipeline.StageName, delay time.Duration) error {
	if err := o.continuations.CancelAllMatching(ctx, pipeline.StagePrefix); err != nil {
		return fmt.Errorf("cancelling continuations: %w", err)
	}
	if err := o.continuations.ScheduleOnce(ctx, pipeline.NewContinuation(runID, stage, delay)); err != nil {
		return fmt.Errorf("scheduling %s: %w", stage, err)
	}
	return nil
}

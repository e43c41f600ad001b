package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bolsas-cloud/fullsync/internal/domain/pipeline"
)

// StageExecutor runs one pipeline stage invocation. The orchestrator in the
// application layer implements this.
type StageExecutor interface {
	ExecuteStage(ctx context.Context, runID uuid.UUID, stage pipeline.StageName) error
}

// DriverConfig holds configuration for the continuation driver
type DriverConfig struct {
	// PollInterval is how often the driver checks for due continuations
	PollInterval time.Duration

	// BatchLimit caps how many due continuations one poll claims. Under the
	// cancel-then-schedule protocol at most one should ever be pending, so the
	// limit only matters after a crash left stale rows behind.
	BatchLimit int
}

// DefaultDriverConfig returns default driver configuration
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		PollInterval: 10 * time.Second,
		BatchLimit:   10,
	}
}

// Driver polls the continuation store and fires due stage invocations. It is
// the in-process replacement for an external one-shot timer service: the
// continuation rows are the durable timers, the driver only delivers them.
// Delivery is at-least-once; stages are idempotent.
type Driver struct {
	config   DriverConfig
	store    pipeline.ContinuationStore
	executor StageExecutor
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewDriver creates a new continuation driver
func NewDriver(
	config DriverConfig,
	store pipeline.ContinuationStore,
	executor StageExecutor,
	logger *zap.Logger,
) *Driver {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultDriverConfig().PollInterval
	}
	if config.BatchLimit <= 0 {
		config.BatchLimit = DefaultDriverConfig().BatchLimit
	}
	return &Driver{
		config:   config,
		store:    store,
		executor: executor,
		logger:   logger.Named("continuation-driver"),
	}
}

// Start starts the driver
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = true
	d.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.runLoop(ctx)

	d.logger.Info("Continuation driver started",
		zap.Duration("poll_interval", d.config.PollInterval),
		zap.Int("batch_limit", d.config.BatchLimit),
	)

	return nil
}

// Stop stops the driver and waits for the current poll to finish
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.isRunning {
		d.mu.Unlock()
		return nil
	}
	d.isRunning = false
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("Continuation driver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop polls for due continuations until the context is cancelled
func (d *Driver) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	// Poll immediately on start so continuations left over from a previous
	// process are picked up without waiting a full interval
	d.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll(ctx)
		}
	}
}

// Poll claims and executes every due continuation. A continuation is deleted
// before its stage runs: a crash mid-stage loses the timer, but the stage's
// own completion protocol re-schedules from the run record, and losing a fire
// is recoverable while double-firing into a new run is not.
func (d *Driver) Poll(ctx context.Context) {
	due, err := d.store.Due(ctx, time.Now(), d.config.BatchLimit)
	if err != nil {
		d.logger.Error("Failed to query due continuations", zap.Error(err))
		return
	}

	for _, c := range due {
		if ctx.Err() != nil {
			return
		}

		if err := d.store.Delete(ctx, c.ID); err != nil {
			d.logger.Error("Failed to claim continuation",
				zap.String("continuation_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}

		d.logger.Info("Firing continuation",
			zap.String("run_id", c.RunID.String()),
			zap.String("stage", string(c.Stage)),
			zap.Time("fire_at", c.FireAt),
		)

		if err := d.executor.ExecuteStage(ctx, c.RunID, c.Stage); err != nil {
			// The orchestrator owns failure handling; the driver only reports
			d.logger.Error("Stage execution failed",
				zap.String("run_id", c.RunID.String()),
				zap.String("stage", string(c.Stage)),
				zap.Error(err),
			)
		}
	}
}

package coordinator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/status"
	pkgsync "github.com/bookwell/customer-sync/internal/sync"
	"github.com/bookwell/customer-sync/internal/sync/state"
	"github.com/bookwell/customer-sync/internal/telemetry"
)

// pollingJitter is the maximum random offset applied to the polling
// interval to prevent aligned instances from polling simultaneously
const pollingJitter = 30 * time.Second

// TriggerOutcome describes the result of a sync trigger
type TriggerOutcome struct {
	// Triggered is true when a sync pass actually ran
	Triggered bool

	// Reason explains the decision
	Reason string

	// Result holds the pass counters when a pass ran successfully
	Result *pkgsync.Result

	// SyncError holds the failure when a pass ran and failed
	SyncError *pkgsync.Error
}

// Coordinator manages sync scheduling and execution
type Coordinator interface {
	// Start runs the background polling loop. Blocks until the
	// context is cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops the background loop
	Stop() error

	// TriggerSync attempts to run a sync pass now. force bypasses the
	// window gate and the once-per-day guard.
	TriggerSync(ctx context.Context, force bool) (*TriggerOutcome, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	manager  pkgsync.Manager
	stateSvc state.Service

	pollInterval time.Duration

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}

	// Metrics
	syncMetrics *telemetry.SyncMetrics

	// now is injected so tests can control time
	now func() time.Time
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithPollInterval sets the background polling interval
func WithPollInterval(interval time.Duration) Option {
	return func(c *defaultCoordinator) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// New creates a new coordinator with injected dependencies
func New(manager pkgsync.Manager, stateSvc state.Service, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:      manager,
		stateSvc:     stateSvc,
		pollInterval: 5 * time.Minute,
		done:         make(chan struct{}),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// calculatePollingInterval returns the base interval with random jitter
func (c *defaultCoordinator) calculatePollingInterval() time.Duration {
	jitter := pollingJitter
	if jitter > c.pollInterval/2 {
		jitter = c.pollInterval / 2
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for polling jitter
	jitterOffset := time.Duration(rand.Int64N(int64(2*jitter))) - jitter
	return c.pollInterval + jitterOffset
}

// Start runs the background polling loop
func (c *defaultCoordinator) Start(ctx context.Context) error {
	logger.Info("Starting background sync coordinator")

	coordCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel
	defer func() {
		close(c.done)
		logger.Info("Background sync coordinator shutting down")
	}()

	pollingInterval := c.calculatePollingInterval()
	logger.Infof("Configured coordinator poll interval: base=%s actual=%s", c.pollInterval, pollingInterval)

	ticker := time.NewTicker(pollingInterval)
	defer ticker.Stop()

	// Initial check so a restart inside the window does not wait a
	// full interval
	c.poll(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.poll(coordCtx)

			// Recalculate interval with new jitter for next iteration
			ticker.Reset(c.calculatePollingInterval())
		case <-coordCtx.Done():
			logger.Info("Sync coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	if c.cancelFunc != nil {
		logger.Info("Stopping sync coordinator")
		c.cancelFunc()
		<-c.done
	}
	return nil
}

func (c *defaultCoordinator) poll(ctx context.Context) {
	outcome, err := c.TriggerSync(ctx, false)
	if err != nil {
		logger.Errorf("Background sync check failed: %v", err)
		return
	}
	if !outcome.Triggered {
		logger.Debugf("Sync not due: %s", outcome.Reason)
	}
}

// TriggerSync attempts to run a sync pass now. The claim on the sync
// state is taken atomically so concurrent triggers cannot start
// overlapping passes.
func (c *defaultCoordinator) TriggerSync(ctx context.Context, force bool) (*TriggerOutcome, error) {
	now := c.now()

	guard, err := c.loadGuardState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load run guard state: %w", err)
	}

	// Claim the sync state. The decision runs inside the atomic
	// update so a concurrent trigger sees the Syncing phase.
	reason := ""
	attemptCount := 0
	claimed, err := c.stateSvc.UpdateStatusAtomically(ctx, func(syncStatus *status.SyncStatus) bool {
		var shouldSync bool
		shouldSync, reason = c.manager.ShouldSync(now, syncStatus, guard, force)
		if !shouldSync {
			return false
		}

		syncStatus.Phase = status.SyncPhaseSyncing
		syncStatus.Message = "Sync in progress"
		syncStatus.LastAttempt = &now
		syncStatus.StartedAt = &now
		syncStatus.EndedAt = nil
		syncStatus.AttemptCount++
		attemptCount = syncStatus.AttemptCount
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim sync state: %w", err)
	}

	if !claimed {
		logger.Infof("Sync skipped: %s", reason)
		return &TriggerOutcome{Triggered: false, Reason: reason}, nil
	}

	logger.Infof("Starting sync pass: %s", reason)
	outcome := c.performSync(ctx, now, attemptCount)
	outcome.Reason = reason
	return outcome, nil
}

// performSync executes a claimed sync pass and releases the claim
func (c *defaultCoordinator) performSync(ctx context.Context, now time.Time, attemptCount int) *TriggerOutcome {
	startTime := time.Now()

	// State writes must survive cancellation of the triggering request,
	// otherwise an aborted pass leaves the Syncing claim stuck until the
	// next restart
	stateCtx := context.WithoutCancel(ctx)

	// Default to a failed status in case of an unexpected exit, and
	// always release the Syncing claim
	syncStatus := &status.SyncStatus{
		Phase:        status.SyncPhaseFailed,
		Message:      "Unexpected failure during sync",
		LastAttempt:  &now,
		StartedAt:    &now,
		AttemptCount: attemptCount,
	}
	defer func() {
		if err := c.stateSvc.UpdateSyncStatus(stateCtx, syncStatus); err != nil {
			logger.Errorf("Failed to update sync status: %v", err)
		}
	}()

	if err := c.stateSvc.SetMarker(stateCtx, state.MarkerLastAttempt, now); err != nil {
		logger.Errorf("Failed to record attempt marker: %v", err)
	}
	if c.syncMetrics != nil {
		c.syncMetrics.RecordLastRun(ctx, now)
	}

	result, syncErr := c.manager.PerformSync(ctx, now)
	syncDuration := time.Since(startTime)
	endedAt := time.Now()

	if syncErr != nil {
		syncStatus.Message = syncErr.Message
		syncStatus.EndedAt = &endedAt
		logger.Errorf("Sync failed at stage %s: %v", syncErr.Stage, syncErr)

		run := &status.RunRecord{
			ID:         runID(result),
			Status:     status.RunStatusFailed,
			WindowFrom: now,
			WindowTo:   now,
			StartedAt:  now,
			EndedAt:    &endedAt,
			Error:      syncErr.Message,
		}
		if result != nil {
			run.WindowFrom = result.WindowFrom
			run.WindowTo = result.WindowTo
			run.Fetched = result.Fetched
			run.Created = result.Created
			run.Updated = result.Updated
			run.Skipped = result.Skipped
			run.Failed = result.Failed
		}
		c.recordRun(stateCtx, run)
		if c.syncMetrics != nil {
			c.syncMetrics.RecordRunDuration(ctx, syncDuration, false)
		}
		return &TriggerOutcome{Triggered: true, SyncError: syncErr}
	}

	syncStatus.Phase = status.SyncPhaseComplete
	syncStatus.Message = "Sync completed successfully"
	syncStatus.LastSyncTime = &endedAt
	syncStatus.EndedAt = &endedAt
	syncStatus.AttemptCount = 0
	syncStatus.Fetched = result.Fetched
	syncStatus.Created = result.Created
	syncStatus.Updated = result.Updated
	syncStatus.Skipped = result.Skipped
	syncStatus.Failed = result.Failed

	// Dry runs do not count as a completed daily sync
	if !result.DryRun {
		if err := c.stateSvc.SetMarker(stateCtx, state.MarkerLastSuccess, now); err != nil {
			logger.Errorf("Failed to record success marker: %v", err)
		}
	}

	c.recordRun(stateCtx, &status.RunRecord{
		ID:         result.RunID,
		Status:     status.RunStatusCompleted,
		WindowFrom: result.WindowFrom,
		WindowTo:   result.WindowTo,
		StartedAt:  now,
		EndedAt:    &endedAt,
		Fetched:    result.Fetched,
		Created:    result.Created,
		Updated:    result.Updated,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
	})

	if c.syncMetrics != nil {
		c.syncMetrics.RecordRunDuration(ctx, syncDuration, true)
		c.syncMetrics.RecordCustomersProcessed(ctx, telemetry.ActionCreated, int64(result.Created))
		c.syncMetrics.RecordCustomersProcessed(ctx, telemetry.ActionUpdated, int64(result.Updated))
		c.syncMetrics.RecordCustomersProcessed(ctx, telemetry.ActionSkipped, int64(result.Skipped))
		c.syncMetrics.RecordCustomersProcessed(ctx, telemetry.ActionFailed, int64(result.Failed))
	}

	logger.Infof("Sync completed: fetched=%d created=%d updated=%d skipped=%d failed=%d duration=%s",
		result.Fetched, result.Created, result.Updated, result.Skipped, result.Failed, syncDuration)
	return &TriggerOutcome{Triggered: true, Result: result}
}

// recordRun inserts and finalizes a run record in one step
func (c *defaultCoordinator) recordRun(ctx context.Context, run *status.RunRecord) {
	startRecord := *run
	startRecord.Status = status.RunStatusRunning
	startRecord.EndedAt = nil
	if err := c.stateSvc.RecordRunStart(ctx, &startRecord); err != nil {
		logger.Errorf("Failed to record run start: %v", err)
		return
	}
	if err := c.stateSvc.RecordRunEnd(ctx, run); err != nil {
		logger.Errorf("Failed to record run end: %v", err)
	}
}

// loadGuardState reads the run guard markers
func (c *defaultCoordinator) loadGuardState(ctx context.Context) (*pkgsync.GuardState, error) {
	lastAttempt, err := c.stateSvc.GetMarker(ctx, state.MarkerLastAttempt)
	if err != nil {
		return nil, err
	}
	lastSuccess, err := c.stateSvc.GetMarker(ctx, state.MarkerLastSuccess)
	if err != nil {
		return nil, err
	}
	return &pkgsync.GuardState{
		LastAttempt: lastAttempt,
		LastSuccess: lastSuccess,
	}, nil
}

// runID returns the run ID from a result, or a new one if the pass
// failed before producing a result
func runID(result *pkgsync.Result) uuid.UUID {
	if result != nil {
		return result.RunID
	}
	return uuid.New()
}

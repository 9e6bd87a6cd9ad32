package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/customer-sync/internal/status"
	pkgsync "github.com/bookwell/customer-sync/internal/sync"
	"github.com/bookwell/customer-sync/internal/sync/state"
)

type fakeManager struct {
	shouldSync bool
	reason     string
	result     *pkgsync.Result
	syncErr    *pkgsync.Error

	performCalls atomic.Int32
}

func (f *fakeManager) ShouldSync(_ time.Time, syncStatus *status.SyncStatus, _ *pkgsync.GuardState, force bool) (bool, string) {
	if syncStatus != nil && syncStatus.Phase == status.SyncPhaseSyncing {
		return false, pkgsync.ReasonAlreadyInProgress
	}
	if force {
		return true, pkgsync.ReasonForced
	}
	return f.shouldSync, f.reason
}

func (f *fakeManager) PerformSync(_ context.Context, now time.Time) (*pkgsync.Result, *pkgsync.Error) {
	f.performCalls.Add(1)
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &pkgsync.Result{
		RunID:      uuid.New(),
		WindowFrom: now.Add(-24 * time.Hour),
		WindowTo:   now,
		Fetched:    2,
		Created:    1,
		Updated:    1,
	}, nil
}

// cancelAwareState fails writes once the given context is cancelled, the
// way a database-backed service does.
type cancelAwareState struct {
	state.Service
}

func (c *cancelAwareState) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Service.UpdateSyncStatus(ctx, syncStatus)
}

func (c *cancelAwareState) SetMarker(ctx context.Context, key string, value time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Service.SetMarker(ctx, key, value)
}

func (c *cancelAwareState) RecordRunStart(ctx context.Context, run *status.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Service.RecordRunStart(ctx, run)
}

func (c *cancelAwareState) RecordRunEnd(ctx context.Context, run *status.RunRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Service.RecordRunEnd(ctx, run)
}

// cancellingManager aborts the trigger context mid-pass, like a client
// disconnecting during a synchronous trigger.
type cancellingManager struct {
	fakeManager
	cancel context.CancelFunc
}

func (c *cancellingManager) PerformSync(ctx context.Context, now time.Time) (*pkgsync.Result, *pkgsync.Error) {
	c.cancel()
	return c.fakeManager.PerformSync(ctx, now)
}

func newTestState(t *testing.T) state.Service {
	t.Helper()
	persistence := status.NewFileStatePersistence(filepath.Join(t.TempDir(), "state.json"))
	svc := state.NewFileStateService(persistence)
	require.NoError(t, svc.Initialize(context.Background()))
	return svc
}

func TestTriggerSync(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 15, 5, 30, 0, 0, time.UTC)

	t.Run("successful pass updates state, markers and runs", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		stateSvc := newTestState(t)
		manager := &fakeManager{shouldSync: true, reason: pkgsync.ReasonDue}

		coord := New(manager, stateSvc).(*defaultCoordinator)
		coord.now = func() time.Time { return now }

		outcome, err := coord.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.True(t, outcome.Triggered)
		assert.Equal(t, pkgsync.ReasonDue, outcome.Reason)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, 1, outcome.Result.Created)

		syncStatus, err := stateSvc.GetSyncStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseComplete, syncStatus.Phase)
		assert.Equal(t, 2, syncStatus.Fetched)
		assert.Equal(t, 0, syncStatus.AttemptCount)

		lastAttempt, err := stateSvc.GetMarker(ctx, state.MarkerLastAttempt)
		require.NoError(t, err)
		require.NotNil(t, lastAttempt)
		assert.True(t, lastAttempt.Equal(now))

		lastSuccess, err := stateSvc.GetMarker(ctx, state.MarkerLastSuccess)
		require.NoError(t, err)
		require.NotNil(t, lastSuccess)

		runs, err := stateSvc.ListRecentRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, status.RunStatusCompleted, runs[0].Status)
	})

	t.Run("skipped pass reports reason", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		stateSvc := newTestState(t)
		manager := &fakeManager{shouldSync: false, reason: pkgsync.ReasonOutsideWindow}

		coord := New(manager, stateSvc)
		outcome, err := coord.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.False(t, outcome.Triggered)
		assert.Equal(t, pkgsync.ReasonOutsideWindow, outcome.Reason)
		assert.Equal(t, int32(0), manager.performCalls.Load())
	})

	t.Run("failed pass keeps failure state and no success marker", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		stateSvc := newTestState(t)
		manager := &fakeManager{
			shouldSync: true,
			reason:     pkgsync.ReasonDue,
			syncErr: &pkgsync.Error{
				Err:     errors.New("connection refused"),
				Message: "Failed to fetch customers: connection refused",
				Stage:   pkgsync.StageFetch,
			},
		}

		coord := New(manager, stateSvc).(*defaultCoordinator)
		coord.now = func() time.Time { return now }

		outcome, err := coord.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.True(t, outcome.Triggered)
		require.NotNil(t, outcome.SyncError)
		assert.Equal(t, pkgsync.StageFetch, outcome.SyncError.Stage)

		syncStatus, err := stateSvc.GetSyncStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseFailed, syncStatus.Phase)
		assert.Equal(t, 1, syncStatus.AttemptCount)

		lastAttempt, err := stateSvc.GetMarker(ctx, state.MarkerLastAttempt)
		require.NoError(t, err)
		require.NotNil(t, lastAttempt)

		lastSuccess, err := stateSvc.GetMarker(ctx, state.MarkerLastSuccess)
		require.NoError(t, err)
		assert.Nil(t, lastSuccess)

		runs, err := stateSvc.ListRecentRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, status.RunStatusFailed, runs[0].Status)
		assert.Contains(t, runs[0].Error, "connection refused")
	})

	t.Run("dry run does not set success marker", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		stateSvc := newTestState(t)
		manager := &fakeManager{
			shouldSync: true,
			reason:     pkgsync.ReasonDue,
			result: &pkgsync.Result{
				RunID:      uuid.New(),
				WindowFrom: now.Add(-24 * time.Hour),
				WindowTo:   now,
				Fetched:    3,
				DryRun:     true,
			},
		}

		coord := New(manager, stateSvc).(*defaultCoordinator)
		coord.now = func() time.Time { return now }

		outcome, err := coord.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.True(t, outcome.Triggered)

		lastSuccess, err := stateSvc.GetMarker(ctx, state.MarkerLastSuccess)
		require.NoError(t, err)
		assert.Nil(t, lastSuccess)
	})

	t.Run("cancelled trigger still releases the claim", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		stateSvc := &cancelAwareState{Service: newTestState(t)}
		manager := &cancellingManager{
			fakeManager: fakeManager{
				shouldSync: true,
				reason:     pkgsync.ReasonDue,
				syncErr: &pkgsync.Error{
					Err:     context.Canceled,
					Message: "Failed to fetch customers: context canceled",
					Stage:   pkgsync.StageFetch,
				},
			},
			cancel: cancel,
		}

		coord := New(manager, stateSvc).(*defaultCoordinator)
		coord.now = func() time.Time { return now }

		outcome, err := coord.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.True(t, outcome.Triggered)
		require.NotNil(t, outcome.SyncError)

		// The claim must not stay stuck at Syncing after the aborted pass
		syncStatus, err := stateSvc.GetSyncStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseFailed, syncStatus.Phase)

		// A forced retrigger must go through
		retry := &fakeManager{shouldSync: true, reason: pkgsync.ReasonDue}
		retryCoord := New(retry, stateSvc).(*defaultCoordinator)
		retryCoord.now = func() time.Time { return now }

		outcome, err = retryCoord.TriggerSync(context.Background(), true)
		require.NoError(t, err)
		assert.True(t, outcome.Triggered)
		assert.Equal(t, pkgsync.ReasonForced, outcome.Reason)
	})

	t.Run("concurrent trigger is rejected while syncing", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		stateSvc := newTestState(t)

		// Leave the state claimed as Syncing
		claimed, err := stateSvc.UpdateStatusAtomically(ctx, func(s *status.SyncStatus) bool {
			s.Phase = status.SyncPhaseSyncing
			return true
		})
		require.NoError(t, err)
		require.True(t, claimed)

		manager := &fakeManager{shouldSync: true, reason: pkgsync.ReasonDue}
		coord := New(manager, stateSvc)

		outcome, err := coord.TriggerSync(ctx, true)
		require.NoError(t, err)
		assert.False(t, outcome.Triggered)
		assert.Equal(t, pkgsync.ReasonAlreadyInProgress, outcome.Reason)
		assert.Equal(t, int32(0), manager.performCalls.Load())
	})
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	stateSvc := newTestState(t)
	manager := &fakeManager{shouldSync: false, reason: pkgsync.ReasonOutsideWindow}

	coord := New(manager, stateSvc, WithPollInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- coord.Start(ctx)
	}()

	// Give the initial poll a moment to run, then stop
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, coord.Stop())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not stop")
	}
}

func TestCalculatePollingInterval(t *testing.T) {
	t.Parallel()

	coord := New(&fakeManager{}, newTestState(t), WithPollInterval(5*time.Minute)).(*defaultCoordinator)

	for range 20 {
		interval := coord.calculatePollingInterval()
		assert.GreaterOrEqual(t, interval, 5*time.Minute-pollingJitter)
		assert.LessOrEqual(t, interval, 5*time.Minute+pollingJitter)
	}
}

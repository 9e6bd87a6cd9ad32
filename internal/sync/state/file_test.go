package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/customer-sync/internal/status"
)

func newFileService(t *testing.T) Service {
	t.Helper()
	persistence := status.NewFileStatePersistence(filepath.Join(t.TempDir(), "state.json"))
	service := NewFileStateService(persistence)
	require.NoError(t, service.Initialize(context.Background()))
	return service
}

func TestFileStateService_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("first run initializes failed phase", func(t *testing.T) {
		t.Parallel()

		service := newFileService(t)
		syncStatus, err := service.GetSyncStatus(context.Background())
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseFailed, syncStatus.Phase)
		assert.Equal(t, "No previous sync state found", syncStatus.Message)
	})

	t.Run("interrupted run is reset to failed", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		filePath := filepath.Join(t.TempDir(), "state.json")
		persistence := status.NewFileStatePersistence(filePath)

		now := time.Now()
		require.NoError(t, persistence.SaveState(ctx, &status.StateDocument{
			Status: &status.SyncStatus{
				Phase:       status.SyncPhaseSyncing,
				LastAttempt: &now,
			},
		}))

		service := NewFileStateService(persistence)
		require.NoError(t, service.Initialize(ctx))

		syncStatus, err := service.GetSyncStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseFailed, syncStatus.Phase)
		assert.Equal(t, "Previous sync was interrupted", syncStatus.Message)
	})

	t.Run("completed state survives restart", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		filePath := filepath.Join(t.TempDir(), "state.json")
		persistence := status.NewFileStatePersistence(filePath)

		first := NewFileStateService(persistence)
		require.NoError(t, first.Initialize(ctx))
		require.NoError(t, first.UpdateSyncStatus(ctx, &status.SyncStatus{
			Phase:   status.SyncPhaseComplete,
			Created: 4,
		}))

		second := NewFileStateService(persistence)
		require.NoError(t, second.Initialize(ctx))

		syncStatus, err := second.GetSyncStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, status.SyncPhaseComplete, syncStatus.Phase)
		assert.Equal(t, 4, syncStatus.Created)
	})
}

func TestFileStateService_UpdateStatusAtomically(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newFileService(t)

	// First claim succeeds
	claimed, err := service.UpdateStatusAtomically(ctx, func(s *status.SyncStatus) bool {
		if s.Phase == status.SyncPhaseSyncing {
			return false
		}
		s.Phase = status.SyncPhaseSyncing
		return true
	})
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim is rejected while syncing
	claimed, err = service.UpdateStatusAtomically(ctx, func(s *status.SyncStatus) bool {
		if s.Phase == status.SyncPhaseSyncing {
			return false
		}
		s.Phase = status.SyncPhaseSyncing
		return true
	})
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestFileStateService_Markers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newFileService(t)

	marker, err := service.GetMarker(ctx, MarkerLastSuccess)
	require.NoError(t, err)
	assert.Nil(t, marker)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, service.SetMarker(ctx, MarkerLastSuccess, now))

	marker, err = service.GetMarker(ctx, MarkerLastSuccess)
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.True(t, now.Equal(*marker))
}

func TestFileStateService_Runs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	service := newFileService(t)

	started := time.Now().UTC().Truncate(time.Second)
	run := &status.RunRecord{
		ID:         uuid.New(),
		Status:     status.RunStatusRunning,
		WindowFrom: started.Add(-24 * time.Hour),
		WindowTo:   started,
		StartedAt:  started,
	}
	require.NoError(t, service.RecordRunStart(ctx, run))

	ended := started.Add(time.Minute)
	run.Status = status.RunStatusCompleted
	run.EndedAt = &ended
	run.Fetched = 7
	run.Created = 2
	require.NoError(t, service.RecordRunEnd(ctx, run))

	runs, err := service.ListRecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, status.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 7, runs[0].Fetched)

	// Unknown run cannot be finished
	err = service.RecordRunEnd(ctx, &status.RunRecord{ID: uuid.New()})
	require.Error(t, err)
}

package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/status"
)

// maxStoredRuns caps the run history kept in the state file
const maxStoredRuns = 50

type fileStateService struct {
	persistence status.StatePersistence

	mu  sync.RWMutex
	doc *status.StateDocument
}

// NewFileStateService creates a new file-based state service
func NewFileStateService(persistence status.StatePersistence) Service {
	return &fileStateService{
		persistence: persistence,
	}
}

func (f *fileStateService) Initialize(ctx context.Context) error {
	doc, err := f.persistence.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}

	if doc.Status == nil {
		logger.Info("No previous sync state found, initializing with defaults")
		doc.Status = &status.SyncStatus{
			Phase:   status.SyncPhaseFailed,
			Message: "No previous sync state found",
		}
		if err := f.persistence.SaveState(ctx, doc); err != nil {
			logger.Warnf("Failed to persist default sync state: %v", err)
		}
	} else if doc.Status.Phase == status.SyncPhaseSyncing {
		// A Syncing phase at startup means the previous run was
		// interrupted. Reset it so the next pass is not blocked.
		logger.Warnf("Previous sync was interrupted (status=Syncing), resetting to Failed")
		doc.Status.Phase = status.SyncPhaseFailed
		doc.Status.Message = "Previous sync was interrupted"
		if err := f.persistence.SaveState(ctx, doc); err != nil {
			logger.Warnf("Failed to persist corrected sync state: %v", err)
		}
	}

	if doc.Status.LastSyncTime != nil {
		logger.Infof("Loaded sync state: phase=%s, last successful sync at %s",
			doc.Status.Phase, doc.Status.LastSyncTime.Format(time.RFC3339))
	} else {
		logger.Infof("Sync state: phase=%s, no previous successful sync", doc.Status.Phase)
	}

	f.mu.Lock()
	f.doc = doc
	f.mu.Unlock()
	return nil
}

func (f *fileStateService) Ping(_ context.Context) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.doc == nil {
		return fmt.Errorf("state service not initialized")
	}
	return nil
}

func (f *fileStateService) GetSyncStatus(_ context.Context) (*status.SyncStatus, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.doc == nil || f.doc.Status == nil {
		return nil, fmt.Errorf("state service not initialized")
	}

	// Return a copy to prevent external modification
	statusCopy := *f.doc.Status
	return &statusCopy, nil
}

func (f *fileStateService) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.doc == nil {
		return fmt.Errorf("state service not initialized")
	}

	statusCopy := *syncStatus
	f.doc.Status = &statusCopy
	return f.persistence.SaveState(ctx, f.doc)
}

func (f *fileStateService) UpdateStatusAtomically(
	ctx context.Context,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.doc == nil || f.doc.Status == nil {
		return false, fmt.Errorf("state service not initialized")
	}

	shouldUpdate := testAndUpdateFn(f.doc.Status)
	if shouldUpdate {
		if err := f.persistence.SaveState(ctx, f.doc); err != nil {
			return false, err
		}
	}
	return shouldUpdate, nil
}

func (f *fileStateService) GetMarker(_ context.Context, key string) (*time.Time, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.doc == nil {
		return nil, fmt.Errorf("state service not initialized")
	}

	value, exists := f.doc.Markers[key]
	if !exists {
		return nil, nil
	}
	return &value, nil
}

func (f *fileStateService) SetMarker(ctx context.Context, key string, value time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.doc == nil {
		return fmt.Errorf("state service not initialized")
	}

	f.doc.Markers[key] = value
	return f.persistence.SaveState(ctx, f.doc)
}

func (f *fileStateService) RecordRunStart(ctx context.Context, run *status.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.doc == nil {
		return fmt.Errorf("state service not initialized")
	}

	// Newest first
	f.doc.Runs = append([]status.RunRecord{*run}, f.doc.Runs...)
	if len(f.doc.Runs) > maxStoredRuns {
		f.doc.Runs = f.doc.Runs[:maxStoredRuns]
	}
	return f.persistence.SaveState(ctx, f.doc)
}

func (f *fileStateService) RecordRunEnd(ctx context.Context, run *status.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.doc == nil {
		return fmt.Errorf("state service not initialized")
	}

	for i := range f.doc.Runs {
		if f.doc.Runs[i].ID == run.ID {
			f.doc.Runs[i] = *run
			return f.persistence.SaveState(ctx, f.doc)
		}
	}
	return fmt.Errorf("run %s not found", run.ID)
}

func (f *fileStateService) ListRecentRuns(_ context.Context, limit int) ([]status.RunRecord, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.doc == nil {
		return nil, fmt.Errorf("state service not initialized")
	}

	if limit <= 0 || limit > len(f.doc.Runs) {
		limit = len(f.doc.Runs)
	}

	runs := make([]status.RunRecord, limit)
	copy(runs, f.doc.Runs[:limit])
	return runs, nil
}

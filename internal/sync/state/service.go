// Package state persists sync status, the run-guard markers and the
// run history, backed by either Postgres or a local JSON file.
package state

import (
	"context"
	"time"

	"github.com/bookwell/customer-sync/internal/status"
)

// Marker keys consulted by the run guard
const (
	// MarkerLastAttempt is when a sync pass last started
	MarkerLastAttempt = "last_attempt"

	// MarkerLastSuccess is when a sync pass last completed successfully
	MarkerLastSuccess = "last_success"
)

// DefaultRunHistoryLimit caps how many run records are returned
const DefaultRunHistoryLimit = 20

// Service is the interface for sync state persistence
type Service interface {
	// Initialize prepares the backing store and recovers from an
	// interrupted run left in the Syncing phase
	Initialize(ctx context.Context) error

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	// GetSyncStatus returns the current sync status
	GetSyncStatus(ctx context.Context) (*status.SyncStatus, error)

	// UpdateSyncStatus replaces the current sync status
	UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error

	// UpdateStatusAtomically loads the current status, applies
	// testAndUpdateFn under a lock, and persists the status when the
	// function returns true. Returns whether the update was applied.
	UpdateStatusAtomically(ctx context.Context, testAndUpdateFn func(syncStatus *status.SyncStatus) bool) (bool, error)

	// GetMarker returns the named timestamp marker, or nil when it
	// has never been set
	GetMarker(ctx context.Context, key string) (*time.Time, error)

	// SetMarker sets the named timestamp marker
	SetMarker(ctx context.Context, key string, value time.Time) error

	// RecordRunStart inserts a new run record in the RUNNING state
	RecordRunStart(ctx context.Context, run *status.RunRecord) error

	// RecordRunEnd updates a run record with its terminal state
	RecordRunEnd(ctx context.Context, run *status.RunRecord) error

	// ListRecentRuns returns the most recent run records, newest first
	ListRecentRuns(ctx context.Context, limit int) ([]status.RunRecord, error)
}

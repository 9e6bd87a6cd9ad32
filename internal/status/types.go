// Package status defines the shared types describing sync progress and
// run history.
package status

import (
	"time"

	"github.com/google/uuid"
)

// SyncPhase represents the current phase of a synchronization operation
type SyncPhase string

const (
	// SyncPhaseSyncing means sync is currently in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means sync completed successfully
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means sync failed
	SyncPhaseFailed SyncPhase = "Failed"
)

// RunStatus represents the terminal state of a single sync run
type RunStatus string

const (
	// RunStatusRunning means the run is still in progress
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted means the run finished successfully
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed means the run ended with an error
	RunStatusFailed RunStatus = "FAILED"
)

// SyncStatus represents the current state of customer synchronization
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSyncTime is the timestamp of the last successful sync
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"`

	// StartedAt is when the current or latest run started
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// EndedAt is when the latest run finished
	EndedAt *time.Time `json:"endedAt,omitempty"`

	// Counts from the latest run
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// RunRecord is the persisted record of a single sync run
type RunRecord struct {
	ID         uuid.UUID  `json:"id"`
	Status     RunStatus  `json:"status"`
	WindowFrom time.Time  `json:"windowFrom"`
	WindowTo   time.Time  `json:"windowTo"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	Fetched    int        `json:"fetched"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Failed     int        `json:"failed"`
	Error      string     `json:"error,omitempty"`
}

// Package service bundles the coordinator and state store behind the
// interface the HTTP API consumes.
package service

import (
	"context"
	"time"

	"github.com/bookwell/customer-sync/internal/status"
	"github.com/bookwell/customer-sync/internal/sync/coordinator"
	"github.com/bookwell/customer-sync/internal/sync/state"
)

// StatusSnapshot combines the current sync status with the run-guard
// markers
type StatusSnapshot struct {
	Status      *status.SyncStatus
	LastAttempt *time.Time
	LastSuccess *time.Time
}

// SyncService is the interface the HTTP API uses to drive and inspect
// synchronization
type SyncService interface {
	// TriggerSync attempts to run a sync pass
	TriggerSync(ctx context.Context, force bool) (*coordinator.TriggerOutcome, error)

	// Status returns the current sync status and guard markers
	Status(ctx context.Context) (*StatusSnapshot, error)

	// RecentRuns returns the most recent run records, newest first
	RecentRuns(ctx context.Context, limit int) ([]status.RunRecord, error)

	// CheckReadiness verifies the service can serve requests
	CheckReadiness(ctx context.Context) error
}

type defaultSyncService struct {
	coordinator coordinator.Coordinator
	stateSvc    state.Service
}

// New creates a new SyncService
func New(coord coordinator.Coordinator, stateSvc state.Service) SyncService {
	return &defaultSyncService{
		coordinator: coord,
		stateSvc:    stateSvc,
	}
}

func (s *defaultSyncService) TriggerSync(ctx context.Context, force bool) (*coordinator.TriggerOutcome, error) {
	return s.coordinator.TriggerSync(ctx, force)
}

func (s *defaultSyncService) Status(ctx context.Context) (*StatusSnapshot, error) {
	syncStatus, err := s.stateSvc.GetSyncStatus(ctx)
	if err != nil {
		return nil, err
	}

	lastAttempt, err := s.stateSvc.GetMarker(ctx, state.MarkerLastAttempt)
	if err != nil {
		return nil, err
	}
	lastSuccess, err := s.stateSvc.GetMarker(ctx, state.MarkerLastSuccess)
	if err != nil {
		return nil, err
	}

	return &StatusSnapshot{
		Status:      syncStatus,
		LastAttempt: lastAttempt,
		LastSuccess: lastSuccess,
	}, nil
}

func (s *defaultSyncService) RecentRuns(ctx context.Context, limit int) ([]status.RunRecord, error) {
	return s.stateSvc.ListRecentRuns(ctx, limit)
}

func (s *defaultSyncService) CheckReadiness(ctx context.Context) error {
	return s.stateSvc.Ping(ctx)
}

package state

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookwell/customer-sync/internal/db/sqlc"
	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/status"
)

type dbStateService struct {
	pool *pgxpool.Pool
}

// NewDBStateService creates a new database-backed state service
func NewDBStateService(pool *pgxpool.Pool) Service {
	return &dbStateService{
		pool: pool,
	}
}

func (d *dbStateService) Initialize(ctx context.Context) error {
	queries := sqlc.New(d.pool)

	state, err := queries.GetSyncState(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logger.Info("No previous sync state found, initializing with defaults")
			message := "No previous sync state found"
			return queries.UpsertSyncState(ctx, sqlc.UpsertSyncStateParams{
				Phase:   string(status.SyncPhaseFailed),
				Message: &message,
			})
		}
		return err
	}

	if state.Phase == string(status.SyncPhaseSyncing) {
		// A Syncing phase at startup means the previous run was
		// interrupted. Reset it so the next pass is not blocked.
		logger.Warnf("Previous sync was interrupted (status=Syncing), resetting to Failed")
		message := "Previous sync was interrupted"
		return queries.UpsertSyncState(ctx, sqlc.UpsertSyncStateParams{
			Phase:        string(status.SyncPhaseFailed),
			Message:      &message,
			StartedAt:    state.StartedAt,
			EndedAt:      state.EndedAt,
			AttemptCount: state.AttemptCount,
			FetchedCount: state.FetchedCount,
			CreatedCount: state.CreatedCount,
			UpdatedCount: state.UpdatedCount,
			SkippedCount: state.SkippedCount,
			FailedCount:  state.FailedCount,
		})
	}

	return nil
}

func (d *dbStateService) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *dbStateService) GetSyncStatus(ctx context.Context) (*status.SyncStatus, error) {
	queries := sqlc.New(d.pool)

	state, err := queries.GetSyncState(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &status.SyncStatus{Phase: status.SyncPhaseFailed}, nil
		}
		return nil, err
	}

	return dbStateToStatus(state), nil
}

func (d *dbStateService) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	queries := sqlc.New(d.pool)
	return queries.UpsertSyncState(ctx, statusToUpsertParams(syncStatus))
}

func (d *dbStateService) UpdateStatusAtomically(
	ctx context.Context,
	testAndUpdateFn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	queries := sqlc.New(d.pool).WithTx(tx)

	// Lock the single state row so concurrent claims serialize
	state, err := queries.GetSyncStateForUpdate(ctx)
	syncStatus := &status.SyncStatus{Phase: status.SyncPhaseFailed}
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return false, err
		}
	} else {
		syncStatus = dbStateToStatus(state)
	}

	shouldUpdate := testAndUpdateFn(syncStatus)
	if shouldUpdate {
		if err := queries.UpsertSyncState(ctx, statusToUpsertParams(syncStatus)); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return shouldUpdate, nil
}

func (d *dbStateService) GetMarker(ctx context.Context, key string) (*time.Time, error) {
	queries := sqlc.New(d.pool)

	marker, err := queries.GetMarker(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &marker.Value, nil
}

func (d *dbStateService) SetMarker(ctx context.Context, key string, value time.Time) error {
	queries := sqlc.New(d.pool)
	return queries.UpsertMarker(ctx, sqlc.UpsertMarkerParams{
		Key:   key,
		Value: value,
	})
}

func (d *dbStateService) RecordRunStart(ctx context.Context, run *status.RunRecord) error {
	queries := sqlc.New(d.pool)
	return queries.InsertSyncRun(ctx, sqlc.InsertSyncRunParams{
		ID:         run.ID,
		Status:     sqlc.RunStatus(run.Status),
		WindowFrom: run.WindowFrom,
		WindowTo:   run.WindowTo,
		StartedAt:  run.StartedAt,
	})
}

func (d *dbStateService) RecordRunEnd(ctx context.Context, run *status.RunRecord) error {
	queries := sqlc.New(d.pool)

	var errorMsg *string
	if run.Error != "" {
		errorMsg = &run.Error
	}

	return queries.FinishSyncRun(ctx, sqlc.FinishSyncRunParams{
		ID:           run.ID,
		Status:       sqlc.RunStatus(run.Status),
		EndedAt:      run.EndedAt,
		FetchedCount: int64(run.Fetched),
		CreatedCount: int64(run.Created),
		UpdatedCount: int64(run.Updated),
		SkippedCount: int64(run.Skipped),
		FailedCount:  int64(run.Failed),
		ErrorMsg:     errorMsg,
	})
}

func (d *dbStateService) ListRecentRuns(ctx context.Context, limit int) ([]status.RunRecord, error) {
	queries := sqlc.New(d.pool)

	if limit <= 0 {
		limit = DefaultRunHistoryLimit
	}

	rows, err := queries.ListRecentSyncRuns(ctx, int32(limit))
	if err != nil {
		return nil, err
	}

	runs := make([]status.RunRecord, 0, len(rows))
	for _, row := range rows {
		run := status.RunRecord{
			ID:         row.ID,
			Status:     status.RunStatus(row.Status),
			WindowFrom: row.WindowFrom,
			WindowTo:   row.WindowTo,
			StartedAt:  row.StartedAt,
			EndedAt:    row.EndedAt,
			Fetched:    int(row.FetchedCount),
			Created:    int(row.CreatedCount),
			Updated:    int(row.UpdatedCount),
			Skipped:    int(row.SkippedCount),
			Failed:     int(row.FailedCount),
		}
		if row.ErrorMsg != nil {
			run.Error = *row.ErrorMsg
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// dbStateToStatus converts a database SyncState to a status.SyncStatus
func dbStateToStatus(state sqlc.SyncState) *status.SyncStatus {
	syncStatus := &status.SyncStatus{
		Phase:       status.SyncPhase(state.Phase),
		LastAttempt: state.StartedAt,
		StartedAt:   state.StartedAt,
		EndedAt:     state.EndedAt,
		AttemptCount: int(state.AttemptCount),
		Fetched:      int(state.FetchedCount),
		Created:      int(state.CreatedCount),
		Updated:      int(state.UpdatedCount),
		Skipped:      int(state.SkippedCount),
		Failed:       int(state.FailedCount),
	}
	if state.Message != nil {
		syncStatus.Message = *state.Message
	}
	// ended_at for a failed run is not a successful sync time
	if syncStatus.Phase == status.SyncPhaseComplete {
		syncStatus.LastSyncTime = state.EndedAt
	}
	return syncStatus
}

// statusToUpsertParams converts a status.SyncStatus to upsert parameters
func statusToUpsertParams(syncStatus *status.SyncStatus) sqlc.UpsertSyncStateParams {
	var message *string
	if syncStatus.Message != "" {
		message = &syncStatus.Message
	}

	startedAt := syncStatus.StartedAt
	if startedAt == nil {
		startedAt = syncStatus.LastAttempt
	}
	endedAt := syncStatus.EndedAt
	if endedAt == nil {
		endedAt = syncStatus.LastSyncTime
	}

	return sqlc.UpsertSyncStateParams{
		Phase:        string(syncStatus.Phase),
		Message:      message,
		StartedAt:    startedAt,
		EndedAt:      endedAt,
		AttemptCount: int64(syncStatus.AttemptCount),
		FetchedCount: int64(syncStatus.Fetched),
		CreatedCount: int64(syncStatus.Created),
		UpdatedCount: int64(syncStatus.Updated),
		SkippedCount: int64(syncStatus.Skipped),
		FailedCount:  int64(syncStatus.Failed),
	}
}

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookwell/customer-sync/internal/board"
	"github.com/bookwell/customer-sync/internal/bookings"
	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/status"
)

// Result contains the result of a completed sync pass
type Result struct {
	RunID      uuid.UUID
	WindowFrom time.Time
	WindowTo   time.Time
	Fetched    int
	Created    int
	Updated    int
	Skipped    int
	Failed     int
	DryRun     bool
}

// Sync reason constants
const (
	// State related reasons
	ReasonAlreadyInProgress  = "sync-already-in-progress"
	ReasonErrorCheckingGuard = "error-checking-run-guard"

	// Gate related reasons
	ReasonOutsideWindow = "outside-sync-window"

	// Run guard related reasons
	ReasonAlreadyRanToday = "already-ran-today"
	ReasonRetryCooldown   = "retry-cooldown-active"

	// Decision reasons
	ReasonForced = "manual-sync-forced"
	ReasonDue    = "sync-due"
)

// Stage constants identifying where in the pass an error occurred
const (
	StageFetch  = "fetch"
	StageMatch  = "match"
	StageCreate = "create"
	StageUpdate = "update"
	StageState  = "state"
)

// Error represents a structured error carrying the pass stage it
// occurred in
type Error struct {
	Err     error
	Message string
	Stage   string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// GuardState holds the persisted timestamps the run guard consults
type GuardState struct {
	// LastAttempt is when a sync pass last started, successful or not
	LastAttempt *time.Time

	// LastSuccess is when a sync pass last completed successfully
	LastSuccess *time.Time
}

// Manager manages customer synchronization passes
type Manager interface {
	// ShouldSync determines whether a sync pass should run at the
	// given time. Returns the decision and a reason string.
	ShouldSync(now time.Time, syncStatus *status.SyncStatus, guard *GuardState, force bool) (bool, string)

	// PerformSync executes a complete sync pass anchored at now
	PerformSync(ctx context.Context, now time.Time) (*Result, *Error)
}

// Options configures a sync manager
type Options struct {
	// Lookback is the width of the creation-time window ending at now
	Lookback time.Duration

	// RecordDelay is the pause between processed records
	RecordDelay time.Duration

	// RetryCooldown is the minimum wait before retrying after a
	// failed attempt on the same day
	RetryCooldown time.Duration

	// DryRun logs the actions a pass would take without mutating the
	// board
	DryRun bool
}

// defaultSyncManager is the default implementation of Manager
type defaultSyncManager struct {
	source bookings.Client
	board  board.Client
	gate   *Gate
	opts   Options

	// sleep is injected so tests can run without real delays
	sleep func(ctx context.Context, d time.Duration) error
}

// NewDefaultSyncManager creates a new defaultSyncManager
func NewDefaultSyncManager(source bookings.Client, boardClient board.Client, gate *Gate, opts Options) Manager {
	return &defaultSyncManager{
		source: source,
		board:  boardClient,
		gate:   gate,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// ShouldSync determines whether a sync pass should run.
// A pass already in progress blocks everything, including forced runs.
// Forced runs bypass the window gate and the once-per-day guard.
func (s *defaultSyncManager) ShouldSync(
	now time.Time,
	syncStatus *status.SyncStatus,
	guard *GuardState,
	force bool,
) (bool, string) {
	if syncStatus != nil && syncStatus.Phase == status.SyncPhaseSyncing {
		return false, ReasonAlreadyInProgress
	}

	if force {
		return true, ReasonForced
	}

	if guard == nil {
		return false, ReasonErrorCheckingGuard
	}

	if !s.gate.Open(now) {
		return false, ReasonOutsideWindow
	}

	// Once-per-day guard: a success earlier today means we are done
	if guard.LastSuccess != nil && s.gate.SameLocalDay(*guard.LastSuccess, now) {
		return false, ReasonAlreadyRanToday
	}

	// A failed attempt earlier today may be retried once the cooldown
	// has passed
	if guard.LastAttempt != nil && s.gate.SameLocalDay(*guard.LastAttempt, now) {
		if now.Sub(*guard.LastAttempt) < s.opts.RetryCooldown {
			return false, ReasonRetryCooldown
		}
	}

	return true, ReasonDue
}

// PerformSync executes a complete sync pass. The creation-time window
// is [now-lookback, now). Individual record failures are counted and
// logged but do not abort the pass.
func (s *defaultSyncManager) PerformSync(ctx context.Context, now time.Time) (*Result, *Error) {
	result := &Result{
		RunID:      uuid.New(),
		WindowFrom: now.Add(-s.opts.Lookback),
		WindowTo:   now,
		DryRun:     s.opts.DryRun,
	}

	customers, err := s.source.ListCustomers(ctx, result.WindowFrom, result.WindowTo)
	if err != nil {
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to fetch customers: %v", err),
			Stage:   StageFetch,
		}
	}
	result.Fetched = len(customers)

	logger.Infof("Sync run %s: fetched %d customers created between %s and %s",
		result.RunID, result.Fetched,
		result.WindowFrom.Format(time.RFC3339), result.WindowTo.Format(time.RFC3339))

	for i := range customers {
		if err := ctx.Err(); err != nil {
			return nil, &Error{
				Err:     err,
				Message: fmt.Sprintf("Sync interrupted after %d of %d customers: %v", i, len(customers), err),
				Stage:   StageState,
			}
		}

		s.processCustomer(ctx, &customers[i], result)

		// Pace requests against the board API
		if i < len(customers)-1 && s.opts.RecordDelay > 0 {
			if err := s.sleep(ctx, s.opts.RecordDelay); err != nil {
				return nil, &Error{
					Err:     err,
					Message: fmt.Sprintf("Sync interrupted after %d of %d customers: %v", i+1, len(customers), err),
					Stage:   StageState,
				}
			}
		}
	}

	logger.Infof("Sync run %s: created=%d updated=%d skipped=%d failed=%d",
		result.RunID, result.Created, result.Updated, result.Skipped, result.Failed)
	return result, nil
}

// processCustomer upserts a single customer onto the board, updating
// the result counters
func (s *defaultSyncManager) processCustomer(ctx context.Context, customer *bookings.Customer, result *Result) {
	email := NormalizeEmail(customer.Email)
	if email == "" {
		logger.Warnf("Skipping customer %s: no email address", customer.ID)
		result.Skipped++
		return
	}

	item, err := s.board.FindByEmail(ctx, email)
	if err != nil {
		logger.Errorf("Failed to look up customer %s by email: %v", customer.ID, err)
		result.Failed++
		return
	}

	card := &board.CustomerCard{
		Name:      customer.FullName(),
		Email:     email,
		Phone:     customer.Phone,
		SourceID:  customer.ID,
		CreatedAt: customer.CreatedAt,
	}

	if item != nil {
		if s.opts.DryRun {
			logger.Infof("Dry run: would update board item %s for customer %s", item.ID, customer.ID)
			result.Updated++
			return
		}
		if _, err := s.board.UpdateCustomer(ctx, item.ID, card); err != nil {
			logger.Errorf("Failed to update board item %s for customer %s: %v", item.ID, customer.ID, err)
			result.Failed++
			return
		}
		result.Updated++
		return
	}

	if s.opts.DryRun {
		logger.Infof("Dry run: would create board item for customer %s", customer.ID)
		result.Created++
		return
	}
	if _, err := s.board.CreateCustomer(ctx, card); err != nil {
		logger.Errorf("Failed to create board item for customer %s: %v", customer.ID, err)
		result.Failed++
		return
	}
	result.Created++
}

// sleepContext sleeps for d or until ctx is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bookwell/customer-sync/internal/logger"
	"github.com/bookwell/customer-sync/internal/service"
	pkgsync "github.com/bookwell/customer-sync/internal/sync"
	"github.com/bookwell/customer-sync/internal/versions"
)

// Response models for API consistency

// RunCounts holds the per-action counters of a sync pass
type RunCounts struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// TriggerResponse represents the outcome of a sync trigger request
type TriggerResponse struct {
	Triggered bool       `json:"triggered"`
	Reason    string     `json:"reason"`
	RunID     string     `json:"runId,omitempty"`
	DryRun    bool       `json:"dryRun,omitempty"`
	Counts    *RunCounts `json:"counts,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// StatusResponse represents the sync status response
type StatusResponse struct {
	Phase        string     `json:"phase"`
	Message      string     `json:"message,omitempty"`
	LastAttempt  *time.Time `json:"lastAttempt,omitempty"`
	LastSuccess  *time.Time `json:"lastSuccess,omitempty"`
	AttemptCount int        `json:"attemptCount"`
	Counts       RunCounts  `json:"counts"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Routes defines the routes for the sync API with dependency injection
type Routes struct {
	service service.SyncService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.SyncService) *Routes {
	return &Routes{
		service: svc,
	}
}

// Router creates a new router for the sync API
func Router(svc service.SyncService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()

	r.Route("/sync", func(r chi.Router) {
		r.Post("/", routes.triggerSync)
		r.Get("/status", routes.getStatus)
		r.Get("/runs", routes.listRuns)
	})

	return r
}

// triggerSync handles POST /v1/sync
//
// Query parameters:
//   - force: bypass the time window and once-per-day guards
//   - wait: when "false", run the pass in the background and return 202
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	force := queryBool(r, "force", false)
	wait := queryBool(r, "wait", true)

	if !wait {
		// Detach from the request context so the pass survives the
		// client disconnecting. The context must be derived before the
		// handler returns.
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if _, err := rr.service.TriggerSync(ctx, force); err != nil {
				logger.Errorf("Background sync trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"accepted"}`))
		return
	}

	outcome, err := rr.service.TriggerSync(r.Context(), force)
	if err != nil {
		logger.Errorf("Failed to trigger sync: %v", err)
		rr.writeErrorResponse(w, "Failed to trigger sync", http.StatusInternalServerError)
		return
	}

	response := TriggerResponse{
		Triggered: outcome.Triggered,
		Reason:    outcome.Reason,
	}

	switch {
	case !outcome.Triggered:
		statusCode := http.StatusOK
		if outcome.Reason == pkgsync.ReasonAlreadyInProgress {
			statusCode = http.StatusConflict
		}
		rr.writeJSONResponse(w, response, statusCode)
	case outcome.SyncError != nil:
		response.Error = outcome.SyncError.Message
		rr.writeJSONResponse(w, response, http.StatusInternalServerError)
	default:
		response.RunID = outcome.Result.RunID.String()
		response.DryRun = outcome.Result.DryRun
		response.Counts = &RunCounts{
			Fetched: outcome.Result.Fetched,
			Created: outcome.Result.Created,
			Updated: outcome.Result.Updated,
			Skipped: outcome.Result.Skipped,
			Failed:  outcome.Result.Failed,
		}
		rr.writeJSONResponse(w, response, http.StatusOK)
	}
}

// getStatus handles GET /v1/sync/status
func (rr *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := rr.service.Status(r.Context())
	if err != nil {
		logger.Errorf("Failed to get sync status: %v", err)
		rr.writeErrorResponse(w, "Failed to get sync status", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		LastAttempt: snapshot.LastAttempt,
		LastSuccess: snapshot.LastSuccess,
	}
	if snapshot.Status != nil {
		response.Phase = string(snapshot.Status.Phase)
		response.Message = snapshot.Status.Message
		response.AttemptCount = snapshot.Status.AttemptCount
		response.Counts = RunCounts{
			Fetched: snapshot.Status.Fetched,
			Created: snapshot.Status.Created,
			Updated: snapshot.Status.Updated,
			Skipped: snapshot.Status.Skipped,
			Failed:  snapshot.Status.Failed,
		}
	}

	rr.writeJSONResponse(w, response, http.StatusOK)
}

// listRuns handles GET /v1/sync/runs
func (rr *Routes) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			rr.writeErrorResponse(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	runs, err := rr.service.RecentRuns(r.Context(), limit)
	if err != nil {
		logger.Errorf("Failed to list sync runs: %v", err)
		rr.writeErrorResponse(w, "Failed to list sync runs", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, map[string]any{
		"runs":  runs,
		"total": len(runs),
	}, http.StatusOK)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.SyncService) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles readiness check requests
func readinessHandler(svc service.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			errorResp := ErrorResponse{
				Error: "SyncService not ready: " + err.Error(),
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			if encodeErr := json.NewEncoder(w).Encode(errorResp); encodeErr != nil {
				logger.Errorf("Failed to encode readiness error response: %v", encodeErr)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := versions.GetVersionInfo()

	response := map[string]string{
		"version":    info.Version,
		"commit":     info.Commit,
		"build_date": info.BuildDate,
		"go_version": info.GoVersion,
		"platform":   info.Platform,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Errorf("Failed to encode version info: %v", err)
	}
}

// queryBool parses a boolean query parameter with a default
func queryBool(r *http.Request, name string, defaultValue bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func (*Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	errorResp := ErrorResponse{
		Error: message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		logger.Errorf("Failed to encode error response: %v", err)
	}
}

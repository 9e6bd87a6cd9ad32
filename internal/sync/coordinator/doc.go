// Package coordinator schedules and executes sync passes. It owns the
// atomic claim on the sync state, writes the run-guard markers and run
// records, and optionally runs a background polling loop.
package coordinator

package sync

import (
	"fmt"
	"time"
)

// Gate decides whether a point in time falls inside the configured
// local-time window. All comparisons happen in the gate's time zone, so
// daylight saving transitions shift the window together with wall
// clocks.
type Gate struct {
	location *time.Location
	startMin int
	endMin   int
}

// NewGate creates a gate for the given IANA time zone and a window
// expressed as HH:MM wall-clock times. The window is half-open
// [start, end) and may wrap past midnight when start is after end.
func NewGate(timezone, start, end string) (*Gate, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", timezone, err)
	}

	startMin, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	if startMin == endMin {
		return nil, fmt.Errorf("window start and end must differ")
	}

	return &Gate{
		location: location,
		startMin: startMin,
		endMin:   endMin,
	}, nil
}

// Open reports whether now falls inside the window
func (g *Gate) Open(now time.Time) bool {
	local := now.In(g.location)
	minutes := local.Hour()*60 + local.Minute()

	if g.startMin < g.endMin {
		return minutes >= g.startMin && minutes < g.endMin
	}
	// Window wraps past midnight
	return minutes >= g.startMin || minutes < g.endMin
}

// SameLocalDay reports whether a and b fall on the same calendar date
// in the gate's time zone
func (g *Gate) SameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.In(g.location).Date()
	by, bm, bd := b.In(g.location).Date()
	return ay == by && am == bm && ad == bd
}

// LocalDate returns the calendar date of t in the gate's time zone,
// formatted as YYYY-MM-DD
func (g *Gate) LocalDate(t time.Time) string {
	return t.In(g.location).Format("2006-01-02")
}

// Location returns the gate's time zone
func (g *Gate) Location() *time.Location {
	return g.location
}

// parseClock parses an HH:MM string into minutes since midnight
func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q: %w", value, err)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

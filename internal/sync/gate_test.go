package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		timezone    string
		start       string
		end         string
		expectError string
	}{
		{name: "valid", timezone: "Europe/Stockholm", start: "06:00", end: "08:00"},
		{name: "wrapping window", timezone: "Europe/Stockholm", start: "23:00", end: "01:00"},
		{name: "unknown zone", timezone: "Mars/Olympus", start: "06:00", end: "08:00", expectError: "failed to load time zone"},
		{name: "bad start", timezone: "UTC", start: "6am", end: "08:00", expectError: "invalid window start"},
		{name: "bad end", timezone: "UTC", start: "06:00", end: "25:00", expectError: "invalid window end"},
		{name: "equal start and end", timezone: "UTC", start: "06:00", end: "06:00", expectError: "must differ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gate, err := NewGate(tt.timezone, tt.start, tt.end)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, gate)
		})
	}
}

func TestGateOpen(t *testing.T) {
	t.Parallel()

	gate, err := NewGate("Europe/Stockholm", "06:00", "08:00")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		open bool
	}{
		{
			// Stockholm is UTC+1 in winter, so 06:30 local is 05:30 UTC
			name: "winter inside window",
			now:  time.Date(2026, 1, 15, 5, 30, 0, 0, time.UTC),
			open: true,
		},
		{
			name: "winter before window",
			now:  time.Date(2026, 1, 15, 4, 59, 0, 0, time.UTC),
			open: false,
		},
		{
			// Stockholm is UTC+2 in summer, so 05:30 UTC is 07:30 local
			name: "summer inside window",
			now:  time.Date(2026, 7, 15, 5, 30, 0, 0, time.UTC),
			open: true,
		},
		{
			// 06:30 UTC is already 08:30 local in summer
			name: "summer after window",
			now:  time.Date(2026, 7, 15, 6, 30, 0, 0, time.UTC),
			open: false,
		},
		{
			// DST starts 2026-03-29: clocks jump 02:00 to 03:00, the
			// offset is UTC+2 that morning
			name: "DST transition morning inside window",
			now:  time.Date(2026, 3, 29, 4, 30, 0, 0, time.UTC),
			open: true,
		},
		{
			// 05:30 UTC on the transition day is 07:30 local; the day
			// before it would have been 06:30
			name: "DST transition morning near end",
			now:  time.Date(2026, 3, 29, 5, 30, 0, 0, time.UTC),
			open: true,
		},
		{
			name: "DST transition morning after window",
			now:  time.Date(2026, 3, 29, 6, 0, 0, 0, time.UTC),
			open: false,
		},
		{
			// DST ends 2025-10-26: back to UTC+1, so 05:30 UTC is
			// 06:30 local again
			name: "after DST end inside window",
			now:  time.Date(2025, 10, 27, 5, 30, 0, 0, time.UTC),
			open: true,
		},
		{
			name: "exact window start is open",
			now:  time.Date(2026, 1, 15, 5, 0, 0, 0, time.UTC),
			open: true,
		},
		{
			name: "exact window end is closed",
			now:  time.Date(2026, 1, 15, 7, 0, 0, 0, time.UTC),
			open: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.open, gate.Open(tt.now))
		})
	}
}

func TestGateOpenWrappingWindow(t *testing.T) {
	t.Parallel()

	gate, err := NewGate("UTC", "23:00", "01:00")
	require.NoError(t, err)

	assert.True(t, gate.Open(time.Date(2026, 1, 15, 23, 30, 0, 0, time.UTC)))
	assert.True(t, gate.Open(time.Date(2026, 1, 15, 0, 30, 0, 0, time.UTC)))
	assert.False(t, gate.Open(time.Date(2026, 1, 15, 1, 0, 0, 0, time.UTC)))
	assert.False(t, gate.Open(time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)))
}

func TestSameLocalDay(t *testing.T) {
	t.Parallel()

	gate, err := NewGate("Europe/Stockholm", "06:00", "08:00")
	require.NoError(t, err)

	// 23:30 UTC on Jan 14 is already 00:30 on Jan 15 in Stockholm
	lateUTC := time.Date(2026, 1, 14, 23, 30, 0, 0, time.UTC)
	morningUTC := time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)
	assert.True(t, gate.SameLocalDay(lateUTC, morningUTC))

	// Same UTC day can be different Stockholm days
	earlyUTC := time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)
	assert.False(t, gate.SameLocalDay(earlyUTC, lateUTC))
}

func TestLocalDate(t *testing.T) {
	t.Parallel()

	gate, err := NewGate("Europe/Stockholm", "06:00", "08:00")
	require.NoError(t, err)

	assert.Equal(t, "2026-01-15", gate.LocalDate(time.Date(2026, 1, 14, 23, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-14", gate.LocalDate(time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)))
}

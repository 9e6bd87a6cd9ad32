// Package sync implements the customer synchronization pass: fetching
// recently created customers from the booking system and upserting them
// onto the work-management board, together with the time-window and
// once-per-day guards that decide when a pass may run.
package sync

package sync

import "strings"

// NormalizeEmail lowercases and trims an email address so that board
// lookups match regardless of how the booking system stored it
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

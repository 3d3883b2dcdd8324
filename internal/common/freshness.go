// Package common provides shared utilities for Navio
package common

import "time"

// Freshness TTLs for data components. The NAV window is the fallback when no
// engine config is supplied; the historical price memo is valid for the
// calendar day it was written, not a rolling window.
const (
	FreshnessNAV       = 60 * time.Minute
	FreshnessSpotQuote = 1 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}

// SameCalendarDay reports whether both times fall on the same local calendar
// day. Used by the historical price memo, which expires at midnight rather
// than after a fixed duration.
func SameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

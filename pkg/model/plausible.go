package model

import "math"

// Slack applied over the reported total when sanity-checking used and
// remaining. The margin is deliberately loose: sources round and
// reformat currency, so this only rejects gross inconsistency.
const (
	plausibleSlackFactor = 1.2
	plausibleSlackAbs    = 1.0
)

// IsPlausible reports whether a snapshot looks like a real reading.
// It is a pure predicate: deterministic, side-effect free, and total
// for arbitrary numeric input. Non-finite values are implausible.
func IsPlausible(s Snapshot) bool {
	if !isFinite(s.Total) || !isFinite(s.Used) || !isFinite(s.Remaining) {
		return false
	}
	// No signal at all.
	if s.Total <= 0 && s.Used <= 0 && s.Remaining <= 0 {
		return false
	}
	if s.Total > 0 {
		if s.Used < 0 || s.Remaining < 0 {
			return false
		}
		limit := s.Total*plausibleSlackFactor + plausibleSlackAbs
		if s.Used > limit || s.Remaining > limit {
			return false
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

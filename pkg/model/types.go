package model

import "time"

// Snapshot is one reading of a named series at a point in time.
// Optional fields are zero when the source only produced a partial
// reading (for example remaining-only).
type Snapshot struct {
	Name        string    `json:"name"`
	Total       float64   `json:"total,omitempty"`
	Used        float64   `json:"used,omitempty"`
	Remaining   float64   `json:"remaining"`
	UsedPercent float64   `json:"used_percent,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// SeriesState is the persisted per-series record. Degraded means the
// series is currently below its most severe configured down-threshold
// and waiting for an explicit upward-recovery crossing; it is never
// cleared by implicit decay.
type SeriesState struct {
	Value    float64 `json:"value"`
	Degraded bool    `json:"degraded"`
}

// ReadingRecord is one appended history row for a polled series.
type ReadingRecord struct {
	ID        string    `json:"id" db:"id"`
	Series    string    `json:"series" db:"series"`
	Remaining float64   `json:"remaining" db:"remaining"`
	Total     float64   `json:"total" db:"total"`
	Used      float64   `json:"used" db:"used"`
	Stale     bool      `json:"stale" db:"stale"`
	Missing   bool      `json:"missing" db:"missing"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// AlertRecord is one appended history row for a delivered alert.
type AlertRecord struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

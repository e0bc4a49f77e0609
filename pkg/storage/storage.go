package storage

import (
	"context"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Storage is the append-only history of polled readings and delivered
// alerts. It is observability only: the watcher keeps running when a
// write fails.
type Storage interface {
	// RecordReading appends one polled reading.
	RecordReading(ctx context.Context, record *model.ReadingRecord) error

	// RecordAlert appends one delivered alert.
	RecordAlert(ctx context.Context, record *model.AlertRecord) error

	// RecentReadings returns the newest readings for a series, newest
	// first. An empty series matches all.
	RecentReadings(ctx context.Context, series string, limit int) ([]model.ReadingRecord, error)

	// RecentAlerts returns the newest alerts, newest first.
	RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error)

	// Close releases resources.
	Close() error
}

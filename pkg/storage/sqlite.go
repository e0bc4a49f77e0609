package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/quotawatch/quotawatch/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements the Storage interface using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) RecordReading(ctx context.Context, record *model.ReadingRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (id, series, remaining, total, used, stale, missing, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.Series, record.Remaining, record.Total, record.Used,
		record.Stale, record.Missing, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (s *SQLite) RecordAlert(ctx context.Context, record *model.AlertRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, title, body, timestamp) VALUES (?, ?, ?, ?)`,
		record.ID, record.Title, record.Body, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLite) RecentReadings(ctx context.Context, series string, limit int) ([]model.ReadingRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT id, series, remaining, total, used, stale, missing, timestamp FROM readings"
	args := []any{}
	if series != "" {
		query += " WHERE series = ?"
		args = append(args, series)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var records []model.ReadingRecord
	for rows.Next() {
		var r model.ReadingRecord
		if err := rows.Scan(&r.ID, &r.Series, &r.Remaining, &r.Total, &r.Used,
			&r.Stale, &r.Missing, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan reading row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) RecentAlerts(ctx context.Context, limit int) ([]model.AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, body, timestamp FROM alerts ORDER BY timestamp DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var records []model.AlertRecord
	for rows.Next() {
		var r model.AlertRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Body, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// SQLiteStore is a SQLite implementation of the BatchRepository interface
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS batch_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			date TEXT,
			sender TEXT,
			subject TEXT,
			label TEXT,
			confidence REAL,
			attachment_count INTEGER,
			url_count INTEGER,
			verdict TEXT,
			note TEXT,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

// Append stores one record
func (s *SQLiteStore) Append(ctx context.Context, rec *core.BatchRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batch_records
			(date, sender, subject, label, confidence, attachment_count, url_count, verdict, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Date, rec.Sender, rec.Subject, string(rec.Label), rec.Confidence,
		rec.AttachmentCount, rec.URLCount, rec.Verdict.String(), rec.Note, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert batch record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]*core.BatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, sender, subject, label, confidence, attachment_count, url_count, verdict, note
		FROM batch_records ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanRecords reads rows produced by the shared column order of the
// sqlite and mysql queries
func scanRecords(rows *sql.Rows) ([]*core.BatchRecord, error) {
	var records []*core.BatchRecord
	for rows.Next() {
		rec := &core.BatchRecord{}
		var label, verdict string
		if err := rows.Scan(&rec.Date, &rec.Sender, &rec.Subject, &label, &rec.Confidence,
			&rec.AttachmentCount, &rec.URLCount, &verdict, &rec.Note); err != nil {
			return nil, fmt.Errorf("failed to scan batch record: %w", err)
		}
		rec.Label = core.Label(label)
		rec.Verdict = severityFromString(verdict)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func severityFromString(s string) core.Severity {
	switch s {
	case "High":
		return core.SeverityHigh
	case "Medium":
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

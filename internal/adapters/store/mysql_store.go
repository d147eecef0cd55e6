package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// MySQLStore is a MySQL implementation of the BatchRepository interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS batch_records (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			date VARCHAR(128),
			sender VARCHAR(512),
			subject TEXT,
			label VARCHAR(16),
			confidence DOUBLE,
			attachment_count INT,
			url_count INT,
			verdict VARCHAR(16),
			note TEXT,
			created_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

// Append stores one record
func (s *MySQLStore) Append(ctx context.Context, rec *core.BatchRecord) error {
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
func (s *MySQLStore) Recent(ctx context.Context, limit int) ([]*core.BatchRecord, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

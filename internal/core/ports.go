package core

import (
	"context"
)

// TextClassifier defines the interface for spam/clean text classification
type TextClassifier interface {
	// Classify scores the given text and returns a label with confidence
	Classify(ctx context.Context, text string) (*ClassificationResult, error)
}

// ReputationScanner defines the interface for external reputation scans.
// Failures are reported inside the ScanResult, never as a Go error, so a
// broken scan can flow through aggregation as an advisory-only signal.
type ReputationScanner interface {
	// ScanFile submits file bytes for analysis and waits for a verdict
	ScanFile(ctx context.Context, data []byte, filename string) ScanResult

	// ScanURL submits a URL for analysis and waits for a verdict
	ScanURL(ctx context.Context, target string) ScanResult
}

// Extractor turns a raw payload tree into text and attachment references
type Extractor interface {
	// Extract walks the payload tree; it must never fail
	Extract(payload *Part, messageID string) ExtractedContent

	// URLs returns the distinct URLs found in extracted body text
	URLs(text string) []string
}

// AttachmentFetcher resolves an AttachmentRef to its raw bytes
type AttachmentFetcher interface {
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// EmailSource defines the interface for the upstream mailbox collaborator
type EmailSource interface {
	AttachmentFetcher

	// ListRecent returns header metadata for the most recent messages
	ListRecent(ctx context.Context, max int64) ([]EmailSummary, error)

	// FetchEmail returns a message with its full payload tree
	FetchEmail(ctx context.Context, id string) (*Email, error)
}

// BatchRepository stores emitted batch records
type BatchRepository interface {
	// Append stores one record; records are never mutated afterwards
	Append(ctx context.Context, rec *BatchRecord) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*BatchRecord, error)

	// Close releases any underlying resources
	Close() error
}

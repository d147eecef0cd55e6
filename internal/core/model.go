package core

import (
	"strconv"
	"time"
)

// Label is the binary verdict of the text classifier
type Label string

const (
	LabelClean Label = "Clean"
	LabelSpam  Label = "Spam"
)

// Severity is the normalized threat tier of a scan or an overall verdict
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
)

// String returns the human-readable name of the severity tier
func (s Severity) String() string {
	switch s {
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// Part is one node of an email's MIME content tree. A part may carry body
// data, reference an attachment and contain child parts all at once, so
// each of those fields is checked independently during extraction.
type Part struct {
	MimeType     string
	Filename     string
	Data         string // URL-safe base64 encoded body data
	AttachmentID string
	Parts        []*Part
}

// AttachmentRef is a lightweight reference to an attachment's bytes.
// The bytes themselves are fetched lazily through an AttachmentFetcher.
type AttachmentRef struct {
	Filename     string
	AttachmentID string
	MessageID    string
}

// ExtractedContent is the result of walking an email's Part tree
type ExtractedContent struct {
	BodyText    string
	Attachments []AttachmentRef
}

// ClassificationResult represents the outcome of text classification
type ClassificationResult struct {
	Label      Label
	Confidence float64 // 0.0-100.0, percent mass on the predicted class
	ModelUsed  string
	AnalyzedAt time.Time
}

// ScanResult is the normalized outcome of one reputation scan. A failed
// scan carries Err and contributes no severity signal.
type ScanResult struct {
	Target         string
	Severity       Severity
	MaliciousHits  int
	SuspiciousHits int
	Err            string
}

// Failed reports whether the scan produced no usable signal
func (r ScanResult) Failed() bool {
	return r.Err != ""
}

// EmailSummary holds the header metadata of a listed message
type EmailSummary struct {
	ID      string
	Subject string
	Sender  string
	Date    string
}

// Email is a message with its full payload tree attached
type Email struct {
	EmailSummary
	Payload *Part
}

// ThreatReport is the combined assessment of a single email
type ThreatReport struct {
	MessageID       string
	Classification  *ClassificationResult
	Scans           []ScanResult
	Verdict         Severity
	AttachmentCount int
	URLCount        int
	Advisories      []string
	AnalyzedAt      time.Time
}

// BatchRecord is one row of batch output. Records are append-only once
// emitted and flat enough to serialize straight to tabular text.
type BatchRecord struct {
	Date            string
	Sender          string
	Subject         string
	Label           Label
	Confidence      float64
	AttachmentCount int
	URLCount        int
	Verdict         Severity
	Note            string
}

// BatchHeader returns the column names matching BatchRecord.Fields
func BatchHeader() []string {
	return []string{"date", "sender", "subject", "label", "confidence", "attachments", "urls", "verdict", "note"}
}

// Fields returns the record as an ordered row of strings, directly
// consumable by tabular encoders. CSV encoding itself stays with the caller.
func (r *BatchRecord) Fields() []string {
	return []string{
		r.Date,
		r.Sender,
		r.Subject,
		string(r.Label),
		strconv.FormatFloat(r.Confidence, 'f', 2, 64),
		strconv.Itoa(r.AttachmentCount),
		strconv.Itoa(r.URLCount),
		r.Verdict.String(),
		r.Note,
	}
}

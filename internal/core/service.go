package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ProgressFunc reports incremental batch progress as a side channel
type ProgressFunc func(processed, total int)

// ThreatService is the core service for email threat assessment
type ThreatService struct {
	classifier         TextClassifier
	scanner            ReputationScanner
	fetcher            AttachmentFetcher
	extractor          Extractor
	store              BatchRepository
	logger             *zap.Logger
	maxURLScans        int
	whitelistedDomains []string
}

// NewThreatService creates a new threat assessment service
func NewThreatService(
	classifier TextClassifier,
	scanner ReputationScanner,
	fetcher AttachmentFetcher,
	extractor Extractor,
	store BatchRepository,
	logger *zap.Logger,
	maxURLScans int,
	whitelistedDomains []string,
) *ThreatService {
	return &ThreatService{
		classifier:         classifier,
		scanner:            scanner,
		fetcher:            fetcher,
		extractor:          extractor,
		store:              store,
		logger:             logger,
		maxURLScans:        maxURLScans,
		whitelistedDomains: whitelistedDomains,
	}
}

// isDomainWhitelisted checks if the sender's domain is in the whitelist
func (s *ThreatService) isDomainWhitelisted(sender string) bool {
	parts := strings.Split(sender, "@")
	if len(parts) != 2 {
		return false
	}

	domain := strings.ToLower(strings.TrimSuffix(parts[1], ">"))

	for _, whitelisted := range s.whitelistedDomains {
		if strings.EqualFold(domain, whitelisted) {
			return true
		}
	}

	return false
}

// AnalyzeEmail runs the full pipeline for one email: extraction,
// classification, attachment and URL scans, then aggregation. It never
// fails outright; every degraded stage is recorded as an advisory on the
// report instead.
func (s *ThreatService) AnalyzeEmail(ctx context.Context, email *Email) *ThreatReport {
	content := s.extractor.Extract(email.Payload, email.ID)
	urls := s.extractor.URLs(content.BodyText)

	report := &ThreatReport{
		MessageID:       email.ID,
		AttachmentCount: len(content.Attachments),
		URLCount:        len(urls),
		AnalyzedAt:      time.Now(),
	}

	if s.isDomainWhitelisted(email.Sender) {
		s.logger.Info("Skipping analysis for whitelisted domain",
			zap.String("sender", email.Sender),
			zap.String("message_id", email.ID))
		report.Classification = &ClassificationResult{
			Label:      LabelClean,
			Confidence: 0.0,
			ModelUsed:  "whitelist",
			AnalyzedAt: time.Now(),
		}
		report.Verdict = SeverityLow
		report.Advisories = append(report.Advisories, "sender domain is whitelisted, scans skipped")
		return report
	}

	classification, err := s.classifier.Classify(ctx, content.BodyText)
	if err != nil {
		s.logger.Error("Classification failed",
			zap.String("message_id", email.ID),
			zap.Error(err))
		classification = &ClassificationResult{
			Label:      LabelClean,
			Confidence: 0.0,
			ModelUsed:  "unavailable",
			AnalyzedAt: time.Now(),
		}
		report.Advisories = append(report.Advisories, fmt.Sprintf("classification unavailable: %v", err))
	}
	report.Classification = classification

	// Attachments are scanned in extraction order; bytes are fetched
	// lazily so unscanned attachments are never buffered.
	for _, ref := range content.Attachments {
		data, err := s.fetcher.FetchAttachment(ctx, ref.MessageID, ref.AttachmentID)
		if err != nil {
			report.Scans = append(report.Scans, ScanResult{
				Target: ref.Filename,
				Err:    fmt.Sprintf("attachment fetch failed: %v", err),
			})
			continue
		}
		report.Scans = append(report.Scans, s.scanner.ScanFile(ctx, data, ref.Filename))
	}

	scanURLs := urls
	if s.maxURLScans > 0 && len(scanURLs) > s.maxURLScans {
		report.Advisories = append(report.Advisories,
			fmt.Sprintf("scanned first %d of %d URLs", s.maxURLScans, len(scanURLs)))
		scanURLs = scanURLs[:s.maxURLScans]
	}
	for _, target := range scanURLs {
		report.Scans = append(report.Scans, s.scanner.ScanURL(ctx, target))
	}

	for _, scan := range report.Scans {
		if scan.Failed() {
			report.Advisories = append(report.Advisories,
				fmt.Sprintf("scan unavailable for %q: %s", scan.Target, scan.Err))
		}
	}

	report.Verdict = Aggregate(classification, report.Scans)

	s.logger.Debug("Email analyzed",
		zap.String("message_id", email.ID),
		zap.String("verdict", report.Verdict.String()),
		zap.Int("attachments", report.AttachmentCount),
		zap.Int("urls", report.URLCount))

	return report
}

// ProcessBatch analyzes emails strictly in the supplied order, emitting one
// record per email. A failing email degrades its own record only and never
// aborts the rest of the batch.
func (s *ThreatService) ProcessBatch(ctx context.Context, emails []*Email, progress ProgressFunc) []BatchRecord {
	records := make([]BatchRecord, 0, len(emails))

	for i, email := range emails {
		rec := s.processOne(ctx, email)
		records = append(records, rec)

		if s.store != nil {
			if err := s.store.Append(ctx, &rec); err != nil {
				s.logger.Error("Failed to persist batch record", zap.Error(err))
			}
		}

		if progress != nil {
			progress(i+1, len(emails))
		}
	}

	return records
}

// processOne produces a batch record for a single email, degrading fields
// rather than failing when the email is incomplete
func (s *ThreatService) processOne(ctx context.Context, email *Email) BatchRecord {
	if email == nil {
		return BatchRecord{Label: LabelClean, Note: "email unavailable"}
	}

	rec := BatchRecord{
		Date:    email.Date,
		Sender:  email.Sender,
		Subject: email.Subject,
		Label:   LabelClean,
	}

	if email.Payload == nil {
		rec.Note = "payload unavailable"
		return rec
	}

	report := s.AnalyzeEmail(ctx, email)
	rec.Label = report.Classification.Label
	rec.Confidence = report.Classification.Confidence
	rec.AttachmentCount = report.AttachmentCount
	rec.URLCount = report.URLCount
	rec.Verdict = report.Verdict
	rec.Note = strings.Join(report.Advisories, "; ")

	return rec
}

// ScanRecent lists the most recent messages from the source, fetches each
// full payload and runs the batch over them. Individual fetch failures
// degrade to records with a note, matching ProcessBatch semantics.
func (s *ThreatService) ScanRecent(ctx context.Context, source EmailSource, max int64, progress ProgressFunc) ([]BatchRecord, error) {
	summaries, err := source.ListRecent(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}

	emails := make([]*Email, 0, len(summaries))
	for _, summary := range summaries {
		email, err := source.FetchEmail(ctx, summary.ID)
		if err != nil {
			s.logger.Warn("Failed to fetch message, degrading record",
				zap.String("message_id", summary.ID),
				zap.Error(err))
			emails = append(emails, &Email{EmailSummary: summary})
			continue
		}
		emails = append(emails, email)
	}

	return s.ProcessBatch(ctx, emails, progress), nil
}

package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	result *ClassificationResult
	err    error
	calls  []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) (*ClassificationResult, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeScanner struct {
	fileResults map[string]ScanResult
	urlResults  map[string]ScanResult
	fileOrder   []string
	urlOrder    []string
}

func (f *fakeScanner) ScanFile(_ context.Context, _ []byte, filename string) ScanResult {
	f.fileOrder = append(f.fileOrder, filename)
	if res, ok := f.fileResults[filename]; ok {
		return res
	}
	return ScanResult{Target: filename, Severity: SeverityLow}
}

func (f *fakeScanner) ScanURL(_ context.Context, target string) ScanResult {
	f.urlOrder = append(f.urlOrder, target)
	if res, ok := f.urlResults[target]; ok {
		return res
	}
	return ScanResult{Target: target, Severity: SeverityLow}
}

type fakeFetcher struct {
	data map[string][]byte
	errs map[string]error
}

func (f *fakeFetcher) FetchAttachment(_ context.Context, _, attachmentID string) ([]byte, error) {
	if err, ok := f.errs[attachmentID]; ok {
		return nil, err
	}
	return f.data[attachmentID], nil
}

type stubExtractor struct {
	content ExtractedContent
	urls    []string
}

func (s *stubExtractor) Extract(_ *Part, _ string) ExtractedContent { return s.content }
func (s *stubExtractor) URLs(_ string) []string                     { return s.urls }

type countingStore struct {
	records []BatchRecord
	err     error
}

func (c *countingStore) Append(_ context.Context, rec *BatchRecord) error {
	if c.err != nil {
		return c.err
	}
	c.records = append(c.records, *rec)
	return nil
}

func (c *countingStore) Recent(_ context.Context, _ int) ([]*BatchRecord, error) { return nil, nil }
func (c *countingStore) Close() error                                            { return nil }

func newTestService(classifier TextClassifier, scanner ReputationScanner, fetcher AttachmentFetcher, extractor Extractor, store BatchRepository, maxURLScans int, whitelist []string) *ThreatService {
	return NewThreatService(classifier, scanner, fetcher, extractor, store, zap.NewNop(), maxURLScans, whitelist)
}

func testEmail(id string) *Email {
	return &Email{
		EmailSummary: EmailSummary{
			ID:      id,
			Subject: "subject " + id,
			Sender:  "alice@example.com",
			Date:    "Mon, 1 Sep 2026 10:00:00 +0000",
		},
		Payload: &Part{MimeType: "text/plain"},
	}
}

func TestAnalyzeEmailCleanNoScans(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean, Confidence: 12.5, ModelUsed: "bow"}}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "hello there"}}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, nil, 5, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	assert.Equal(t, SeverityLow, report.Verdict)
	assert.Equal(t, LabelClean, report.Classification.Label)
	assert.Empty(t, report.Scans)
	assert.Empty(t, report.Advisories)
}

func TestAnalyzeEmailSpamIsHigh(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelSpam, Confidence: 97.31, ModelUsed: "bow"}}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "buy now"}}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, nil, 5, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	assert.Equal(t, SeverityHigh, report.Verdict)
}

func TestAnalyzeEmailScansAttachmentsInOrder(t *testing.T) {
	extractor := &stubExtractor{content: ExtractedContent{
		BodyText: "see attached",
		Attachments: []AttachmentRef{
			{Filename: "a.pdf", AttachmentID: "att-1", MessageID: "m1"},
			{Filename: "b.exe", AttachmentID: "att-2", MessageID: "m1"},
		},
	}}
	scanner := &fakeScanner{fileResults: map[string]ScanResult{
		"b.exe": {Target: "b.exe", Severity: SeverityHigh, MaliciousHits: 7},
	}}
	fetcher := &fakeFetcher{data: map[string][]byte{"att-1": []byte("aa"), "att-2": []byte("bb")}}
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean}}
	svc := newTestService(classifier, scanner, fetcher, extractor, nil, 5, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	assert.Equal(t, []string{"a.pdf", "b.exe"}, scanner.fileOrder)
	assert.Equal(t, SeverityHigh, report.Verdict)
	assert.Equal(t, 2, report.AttachmentCount)
}

func TestAnalyzeEmailAttachmentFetchFailureDegrades(t *testing.T) {
	extractor := &stubExtractor{content: ExtractedContent{
		BodyText:    "see attached",
		Attachments: []AttachmentRef{{Filename: "a.pdf", AttachmentID: "att-1", MessageID: "m1"}},
	}}
	fetcher := &fakeFetcher{errs: map[string]error{"att-1": errors.New("boom")}}
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean}}
	svc := newTestService(classifier, &fakeScanner{}, fetcher, extractor, nil, 5, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	require.Len(t, report.Scans, 1)
	assert.True(t, report.Scans[0].Failed())
	assert.Equal(t, SeverityLow, report.Verdict)
	require.Len(t, report.Advisories, 1)
	assert.Contains(t, report.Advisories[0], "scan unavailable")
}

func TestAnalyzeEmailCapsURLScans(t *testing.T) {
	urls := []string{"http://a.test", "http://b.test", "http://c.test"}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "links"}, urls: urls}
	scanner := &fakeScanner{urlResults: map[string]ScanResult{
		"http://c.test": {Target: "http://c.test", Severity: SeverityHigh},
	}}
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean}}
	svc := newTestService(classifier, scanner, &fakeFetcher{}, extractor, nil, 2, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	// Only the first two URLs get scanned, so c.test's High never lands.
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, scanner.urlOrder)
	assert.Equal(t, SeverityLow, report.Verdict)
	assert.Equal(t, 3, report.URLCount)
	require.Len(t, report.Advisories, 1)
	assert.Contains(t, report.Advisories[0], "scanned first 2 of 3")
}

func TestAnalyzeEmailClassifierFailureDegrades(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("provider down")}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "hello"}}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, nil, 5, nil)

	report := svc.AnalyzeEmail(context.Background(), testEmail("m1"))

	require.NotNil(t, report.Classification)
	assert.Equal(t, LabelClean, report.Classification.Label)
	assert.Equal(t, 0.0, report.Classification.Confidence)
	assert.Equal(t, "unavailable", report.Classification.ModelUsed)
	assert.Equal(t, SeverityLow, report.Verdict)
	require.Len(t, report.Advisories, 1)
	assert.Contains(t, report.Advisories[0], "classification unavailable")
}

func TestAnalyzeEmailWhitelistedSenderSkipsPipeline(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelSpam, Confidence: 99}}
	scanner := &fakeScanner{}
	extractor := &stubExtractor{
		content: ExtractedContent{
			BodyText:    "totally spam",
			Attachments: []AttachmentRef{{Filename: "a.pdf", AttachmentID: "att-1", MessageID: "m1"}},
		},
		urls: []string{"http://a.test"},
	}
	svc := newTestService(classifier, scanner, &fakeFetcher{}, extractor, nil, 5, []string{"example.com"})

	email := testEmail("m1")
	email.Sender = "Alice <alice@Example.COM>"
	report := svc.AnalyzeEmail(context.Background(), email)

	assert.Equal(t, SeverityLow, report.Verdict)
	assert.Equal(t, "whitelist", report.Classification.ModelUsed)
	assert.Empty(t, classifier.calls)
	assert.Empty(t, scanner.fileOrder)
	assert.Empty(t, scanner.urlOrder)
}

func TestProcessBatchPreservesOrderAndIsolatesFailures(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean, Confidence: 5}}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "hi"}}
	store := &countingStore{}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, store, 5, nil)

	broken := testEmail("m2")
	broken.Payload = nil
	emails := []*Email{testEmail("m1"), broken, testEmail("m3")}

	var progress []int
	records := svc.ProcessBatch(context.Background(), emails, func(processed, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, processed)
	})

	require.Len(t, records, 3)
	assert.Equal(t, "subject m1", records[0].Subject)
	assert.Equal(t, "subject m2", records[1].Subject)
	assert.Equal(t, "subject m3", records[2].Subject)
	assert.Equal(t, "payload unavailable", records[1].Note)
	assert.Equal(t, LabelClean, records[1].Label)
	assert.Equal(t, []int{1, 2, 3}, progress)
	assert.Len(t, store.records, 3)
}

func TestProcessBatchStoreFailureDoesNotAbort(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean}}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "hi"}}
	store := &countingStore{err: errors.New("disk full")}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, store, 5, nil)

	records := svc.ProcessBatch(context.Background(), []*Email{testEmail("m1"), testEmail("m2")}, nil)

	assert.Len(t, records, 2)
}

type fakeSource struct {
	fakeFetcher
	summaries []EmailSummary
	emails    map[string]*Email
	fetchErrs map[string]error
}

func (f *fakeSource) ListRecent(_ context.Context, max int64) ([]EmailSummary, error) {
	if int64(len(f.summaries)) > max {
		return f.summaries[:max], nil
	}
	return f.summaries, nil
}

func (f *fakeSource) FetchEmail(_ context.Context, id string) (*Email, error) {
	if err, ok := f.fetchErrs[id]; ok {
		return nil, err
	}
	email, ok := f.emails[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return email, nil
}

func TestScanRecentDegradesFetchFailures(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean, Confidence: 1}}
	extractor := &stubExtractor{content: ExtractedContent{BodyText: "hi"}}
	source := &fakeSource{
		summaries: []EmailSummary{
			{ID: "m1", Subject: "one", Sender: "a@x.test", Date: "d1"},
			{ID: "m2", Subject: "two", Sender: "b@x.test", Date: "d2"},
		},
		emails:    map[string]*Email{"m1": testEmail("m1")},
		fetchErrs: map[string]error{"m2": errors.New("unreachable")},
	}
	svc := newTestService(classifier, &fakeScanner{}, source, extractor, nil, 5, nil)

	records, err := svc.ScanRecent(context.Background(), source, 10, nil)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "two", records[1].Subject)
	assert.Equal(t, "payload unavailable", records[1].Note)
}

func TestScanRecentListFailure(t *testing.T) {
	classifier := &fakeClassifier{result: &ClassificationResult{Label: LabelClean}}
	extractor := &stubExtractor{}
	svc := newTestService(classifier, &fakeScanner{}, &fakeFetcher{}, extractor, nil, 5, nil)

	source := &failingSource{}
	records, err := svc.ScanRecent(context.Background(), source, 10, nil)

	assert.Error(t, err)
	assert.Nil(t, records)
}

type failingSource struct{ fakeFetcher }

func (f *failingSource) ListRecent(_ context.Context, _ int64) ([]EmailSummary, error) {
	return nil, errors.New("list failed")
}

func (f *failingSource) FetchEmail(_ context.Context, _ string) (*Email, error) {
	return nil, errors.New("not reached")
}

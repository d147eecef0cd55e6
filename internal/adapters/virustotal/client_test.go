package virustotal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// vtServer is a minimal stand-in for the analysis API: submissions return a
// fixed analysis id, polls return the configured status and stats.
type vtServer struct {
	status      string
	malicious   int
	suspicious  int
	submitCode  int
	pollCount   atomic.Int32
	submitCount atomic.Int32
}

func (s *vtServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files", s.handleSubmit)
	mux.HandleFunc("POST /urls", s.handleSubmit)
	mux.HandleFunc("GET /analyses/{id}", s.handlePoll)
	return mux
}

func (s *vtServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.submitCount.Add(1)
	if r.Header.Get("x-apikey") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if s.submitCode != 0 {
		w.WriteHeader(s.submitCode)
		fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)
		return
	}
	fmt.Fprint(w, `{"data":{"id":"analysis-1"}}`)
}

func (s *vtServer) handlePoll(w http.ResponseWriter, _ *http.Request) {
	s.pollCount.Add(1)
	fmt.Fprintf(w, `{"data":{"attributes":{"status":%q,"stats":{"malicious":%d,"suspicious":%d}}}}`,
		s.status, s.malicious, s.suspicious)
}

func newTestClient(t *testing.T, srv *vtServer, apiKey string) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	return NewClient(config.VirusTotalConfig{
		APIKey:           apiKey,
		BaseURL:          ts.URL,
		FilePollAttempts: 3,
		URLPollAttempts:  4,
		PollInterval:     time.Millisecond,
		RequestTimeout:   time.Second,
	}, zap.NewNop()), ts
}

func TestScanFileMalicious(t *testing.T) {
	srv := &vtServer{status: "completed", malicious: 5, suspicious: 2}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanFile(context.Background(), []byte("payload"), "evil.exe")

	assert.False(t, result.Failed())
	assert.Equal(t, "evil.exe", result.Target)
	assert.Equal(t, core.SeverityHigh, result.Severity)
	assert.Equal(t, 5, result.MaliciousHits)
	assert.Equal(t, 2, result.SuspiciousHits)
}

func TestScanFileSuspiciousOnly(t *testing.T) {
	srv := &vtServer{status: "completed", suspicious: 1}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanFile(context.Background(), []byte("payload"), "odd.bin")

	assert.Equal(t, core.SeverityMedium, result.Severity)
}

func TestScanURLClean(t *testing.T) {
	srv := &vtServer{status: "completed"}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanURL(context.Background(), "http://example.com")

	assert.False(t, result.Failed())
	assert.Equal(t, core.SeverityLow, result.Severity)
	assert.Equal(t, "http://example.com", result.Target)
}

func TestScanMissingAPIKey(t *testing.T) {
	srv := &vtServer{status: "completed"}
	client, _ := newTestClient(t, srv, "")

	fileResult := client.ScanFile(context.Background(), []byte("x"), "a.bin")
	urlResult := client.ScanURL(context.Background(), "http://example.com")

	assert.True(t, fileResult.Failed())
	assert.True(t, urlResult.Failed())
	assert.Contains(t, fileResult.Err, "API key is not configured")
	assert.Equal(t, int32(0), srv.submitCount.Load())
}

func TestScanSubmitRejected(t *testing.T) {
	srv := &vtServer{submitCode: http.StatusTooManyRequests}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanFile(context.Background(), []byte("x"), "a.bin")

	assert.True(t, result.Failed())
	assert.Contains(t, result.Err, "submit failed")
	assert.Equal(t, int32(0), srv.pollCount.Load())
}

func TestScanPollExhaustion(t *testing.T) {
	srv := &vtServer{status: "queued"}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanFile(context.Background(), []byte("x"), "slow.bin")

	assert.True(t, result.Failed())
	assert.Equal(t, "scan timed out", result.Err)
	assert.Equal(t, int32(3), srv.pollCount.Load())
}

func TestScanURLUsesOwnAttemptBound(t *testing.T) {
	srv := &vtServer{status: "queued"}
	client, _ := newTestClient(t, srv, "key")

	result := client.ScanURL(context.Background(), "http://slow.example.com")

	assert.True(t, result.Failed())
	assert.Equal(t, int32(4), srv.pollCount.Load())
}

func TestScanContextCancelled(t *testing.T) {
	srv := &vtServer{status: "queued"}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	client := NewClient(config.VirusTotalConfig{
		APIKey:           "key",
		BaseURL:          ts.URL,
		FilePollAttempts: 5,
		URLPollAttempts:  5,
		PollInterval:     time.Minute,
		RequestTimeout:   time.Second,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan core.ScanResult, 1)
	go func() {
		done <- client.ScanFile(ctx, []byte("x"), "a.bin")
	}()
	cancel()

	select {
	case result := <-done:
		require.True(t, result.Failed())
		assert.Contains(t, result.Err, "scan cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not observe cancellation")
	}
}

func TestSeverityFromStats(t *testing.T) {
	assert.Equal(t, core.SeverityLow, severityFromStats(0, 0))
	assert.Equal(t, core.SeverityMedium, severityFromStats(0, 3))
	assert.Equal(t, core.SeverityHigh, severityFromStats(1, 0))
	assert.Equal(t, core.SeverityHigh, severityFromStats(2, 5))
}

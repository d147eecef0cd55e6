// Package virustotal implements the reputation scanner against the
// VirusTotal v3 API: submit a file or URL, then poll the analysis id until
// it completes or the attempt bound runs out. All failures are folded into
// the returned ScanResult so callers never see a transport error directly.
package virustotal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// Client submits artifacts to VirusTotal and waits for verdicts. It is
// stateless apart from the credential and safe for concurrent use.
type Client struct {
	httpClient       *http.Client
	apiKey           string
	baseURL          string
	filePollAttempts int
	urlPollAttempts  int
	pollInterval     time.Duration
	logger           *zap.Logger
}

// NewClient creates a new VirusTotal client
func NewClient(cfg config.VirusTotalConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient:       &http.Client{Timeout: cfg.RequestTimeout},
		apiKey:           cfg.APIKey,
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		filePollAttempts: cfg.FilePollAttempts,
		urlPollAttempts:  cfg.URLPollAttempts,
		pollInterval:     cfg.PollInterval,
		logger:           logger,
	}
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type analysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
			} `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// ScanFile uploads file bytes and polls for the analysis verdict
func (c *Client) ScanFile(ctx context.Context, data []byte, filename string) core.ScanResult {
	if c.apiKey == "" {
		return errResult(filename, "API key is not configured")
	}

	analysisID, err := c.submitFile(ctx, data, filename)
	if err != nil {
		return errResult(filename, fmt.Sprintf("submit failed: %v", err))
	}

	return c.poll(ctx, filename, analysisID, c.filePollAttempts)
}

// ScanURL submits a URL and polls for the analysis verdict
func (c *Client) ScanURL(ctx context.Context, target string) core.ScanResult {
	if c.apiKey == "" {
		return errResult(target, "API key is not configured")
	}

	analysisID, err := c.submitURL(ctx, target)
	if err != nil {
		return errResult(target, fmt.Sprintf("submit failed: %v", err))
	}

	return c.poll(ctx, target, analysisID, c.urlPollAttempts)
}

// submitFile uploads the bytes as a multipart form and returns the
// analysis id assigned by the service
func (c *Client) submitFile(ctx context.Context, data []byte, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.doSubmit(req)
}

// submitURL posts the target URL as a form field and returns the analysis id
func (c *Client) submitURL(ctx context.Context, target string) (string, error) {
	form := url.Values{"url": {target}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doSubmit(req)
}

func (c *Client) doSubmit(req *http.Request) (string, error) {
	req.Header.Set("x-apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to decode submit response: %w", err)
	}
	if submitted.Data.ID == "" {
		return "", fmt.Errorf("submit response carried no analysis id")
	}

	return submitted.Data.ID, nil
}

// poll queries the analysis until it completes, the attempt bound is
// exhausted, or the context is cancelled. Each iteration waits the
// configured interval before querying.
func (c *Client) poll(ctx context.Context, target, analysisID string, attempts int) core.ScanResult {
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return errResult(target, fmt.Sprintf("scan cancelled: %v", ctx.Err()))
		case <-time.After(c.pollInterval):
		}

		analysis, err := c.fetchAnalysis(ctx, analysisID)
		if err != nil {
			c.logger.Debug("Analysis poll attempt failed",
				zap.String("analysis_id", analysisID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}

		if analysis.Data.Attributes.Status == "completed" {
			stats := analysis.Data.Attributes.Stats
			return core.ScanResult{
				Target:         target,
				Severity:       severityFromStats(stats.Malicious, stats.Suspicious),
				MaliciousHits:  stats.Malicious,
				SuspiciousHits: stats.Suspicious,
			}
		}
	}

	return errResult(target, "scan timed out")
}

func (c *Client) fetchAnalysis(ctx context.Context, analysisID string) (*analysisResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/analyses/"+analysisID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var analysis analysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &analysis, nil
}

// severityFromStats applies the same three-tier mapping to file and URL
// scans so severities stay comparable across signal types
func severityFromStats(malicious, suspicious int) core.Severity {
	switch {
	case malicious > 0:
		return core.SeverityHigh
	case suspicious > 0:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

func errResult(target, message string) core.ScanResult {
	return core.ScanResult{Target: target, Err: message}
}

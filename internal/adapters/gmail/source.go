// Package gmail adapts the Gmail API to the core.EmailSource port: listing
// recent messages with header metadata, fetching full payload trees and
// resolving attachment references to raw bytes. OAuth browser flows are out
// of scope; a previously issued token file is required.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/utils"
)

// Source is a Gmail-backed implementation of core.EmailSource
type Source struct {
	svc    *gm.Service
	logger *zap.Logger
}

// NewSource builds an authenticated Gmail source from the credential and
// token files named in the configuration
func NewSource(ctx context.Context, cfg config.GmailConfig, logger *zap.Logger) (*Source, error) {
	credentials, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(credentials, gm.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	tokenBytes, err := os.ReadFile(cfg.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(tokenBytes, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	svc, err := gm.NewService(ctx, option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Source{
		svc:    svc,
		logger: logger,
	}, nil
}

// ListRecent returns header metadata for the most recent messages.
// Individual message failures are skipped so one broken message cannot
// empty the listing.
func (s *Source) ListRecent(ctx context.Context, max int64) ([]core.EmailSummary, error) {
	resp, err := s.svc.Users.Messages.List("me").MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	summaries := make([]core.EmailSummary, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		detail, err := s.svc.Users.Messages.Get("me", msg.Id).
			Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).
			Do()
		if err != nil {
			s.logger.Warn("Skipping unreadable message",
				zap.String("message_id", msg.Id),
				zap.Error(err))
			continue
		}

		headers := headerMap(detail.Payload.Headers)
		summaries = append(summaries, core.EmailSummary{
			ID:      detail.Id,
			Subject: defaultStr(headers["Subject"], "No Subject"),
			Sender:  defaultStr(headers["From"], "Unknown Sender"),
			Date:    defaultStr(headers["Date"], "Unknown Date"),
		})
	}

	return summaries, nil
}

// FetchEmail returns the message with its full payload tree
func (s *Source) FetchEmail(ctx context.Context, id string) (*core.Email, error) {
	msg, err := s.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}

	headers := headerMap(msg.Payload.Headers)
	return &core.Email{
		EmailSummary: core.EmailSummary{
			ID:      msg.Id,
			Subject: defaultStr(headers["Subject"], "No Subject"),
			Sender:  defaultStr(headers["From"], "Unknown Sender"),
			Date:    defaultStr(headers["Date"], "Unknown Date"),
		},
		Payload: convertPart(msg.Payload),
	}, nil
}

// FetchAttachment downloads and decodes raw attachment bytes
func (s *Source) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := s.svc.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}

	data, err := utils.DecodeBase64URL(att.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %s: %w", attachmentID, err)
	}
	return data, nil
}

// convertPart maps the Gmail payload tree onto the core Part tree
func convertPart(p *gm.MessagePart) *core.Part {
	if p == nil {
		return nil
	}

	part := &core.Part{
		MimeType: p.MimeType,
		Filename: p.Filename,
	}
	if p.Body != nil {
		part.Data = p.Body.Data
		part.AttachmentID = p.Body.AttachmentId
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child))
	}
	return part
}

func headerMap(headers []*gm.MessagePartHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Name] = h.Value
	}
	return m
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

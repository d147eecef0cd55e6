// Package gateway implements an inbound SMTP surface: every accepted
// message is run through the threat pipeline, stamped with verdict headers
// and optionally forwarded upstream or rejected outright.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/config"
	"github.com/mikey/mail-threat-scanner/internal/core"
)

// SMTPGateway accepts inbound mail and runs the threat pipeline on it
type SMTPGateway struct {
	service *core.ThreatService
	fetcher *InlineFetcher
	cfg     config.GatewayConfig
	logger  *zap.Logger
	server  *smtp.Server
}

// NewSMTPGateway creates a new SMTP gateway
func NewSMTPGateway(service *core.ThreatService, fetcher *InlineFetcher, cfg config.GatewayConfig, logger *zap.Logger) *SMTPGateway {
	return &SMTPGateway{
		service: service,
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start starts the gateway's SMTP listener
func (g *SMTPGateway) Start() error {
	g.server = smtp.NewServer(&smtpBackend{gateway: g})
	g.server.Addr = g.cfg.ListenAddress
	g.server.Domain = "localhost"
	g.server.ReadTimeout = 30 * time.Second
	g.server.WriteTimeout = 30 * time.Second
	g.server.MaxMessageBytes = 30 * 1024 * 1024
	g.server.MaxRecipients = 50
	g.server.AllowInsecureAuth = true

	g.logger.Info("SMTP gateway starting", zap.String("address", g.cfg.ListenAddress))

	go func() {
		if err := g.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				g.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the gateway
func (g *SMTPGateway) Stop() error {
	if g.server != nil {
		return g.server.Close()
	}
	return nil
}

// handleMessage runs the pipeline for one accepted message and decides
// whether to reject, annotate and forward, or just log
func (g *SMTPGateway) handleMessage(from string, recipients []string, raw []byte) error {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	messageID := uuid.New().String()
	email, attachments, err := ParseMessage(msg, messageID)
	if err != nil {
		return fmt.Errorf("failed to convert message: %w", err)
	}

	g.fetcher.Register(messageID, attachments)
	defer g.fetcher.Release(messageID)

	report := g.service.AnalyzeEmail(context.Background(), email)

	g.logger.Info("Inbound message analyzed",
		zap.String("message_id", messageID),
		zap.String("sender", from),
		zap.String("verdict", report.Verdict.String()),
		zap.String("label", string(report.Classification.Label)))

	if g.cfg.BlockHigh && report.Verdict == core.SeverityHigh {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Message rejected: high threat level",
		}
	}

	if g.cfg.UpstreamEnabled {
		annotated := g.annotate(raw, report)
		if err := g.forward(from, recipients, annotated); err != nil {
			g.logger.Error("Failed to forward message upstream",
				zap.String("message_id", messageID),
				zap.Error(err))
			return fmt.Errorf("failed to forward message: %w", err)
		}
	}

	return nil
}

// annotate prepends the verdict headers to the raw message
func (g *SMTPGateway) annotate(raw []byte, report *core.ThreatReport) []byte {
	var headers bytes.Buffer
	fmt.Fprintf(&headers, "%s: %s\r\n", g.cfg.VerdictHeader, report.Verdict)
	fmt.Fprintf(&headers, "%s: %s\r\n", g.cfg.LabelHeader, report.Classification.Label)
	fmt.Fprintf(&headers, "%s: %s\r\n", g.cfg.ConfidenceHeader,
		strconv.FormatFloat(report.Classification.Confidence, 'f', 2, 64))
	return append(headers.Bytes(), raw...)
}

// forward relays the annotated message to the upstream MTA
func (g *SMTPGateway) forward(from string, recipients []string, data []byte) error {
	addr := fmt.Sprintf("%s:%d", g.cfg.UpstreamAddr, g.cfg.UpstreamPort)

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to upstream at %s: %w", addr, err)
	}
	defer client.Close()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}
	if err := client.Hello(hostname); err != nil {
		return fmt.Errorf("failed to greet upstream: %w", err)
	}

	if err := client.Mail(from, nil); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data stream: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish data stream: %w", err)
	}

	return client.Quit()
}

// smtpBackend implements the go-smtp backend interface
type smtpBackend struct {
	gateway *SMTPGateway
}

func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{gateway: b.gateway}, nil
}

// smtpSession holds the envelope of one inbound transaction
type smtpSession struct {
	gateway    *SMTPGateway
	from       string
	recipients []string
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.gateway.handleMessage(s.from, s.recipients, raw)
}

func (s *smtpSession) Reset() {
	s.from = ""
	s.recipients = nil
}

func (s *smtpSession) Logout() error {
	return nil
}

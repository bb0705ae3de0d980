// Package provider holds the concrete outbound integrations: the SMTP
// email sender and the log-only sender used when no SMTP server is
// configured.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/abensaid/lendify/pkg/config"
	"github.com/abensaid/lendify/pkg/provider"
)

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	addr   string
	from   string
	logger *slog.Logger
}

var _ provider.EmailSender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTP-backed email sender.
func NewSMTPSender(cfg *config.Email, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		addr:   cfg.SMTPAddr,
		from:   cfg.From,
		logger: logger.With("provider", "smtp"),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// LogSender writes the message to the log instead of delivering it.
// Used in development and when no SMTP relay is configured.
type LogSender struct {
	logger *slog.Logger
}

var _ provider.EmailSender = (*LogSender)(nil)

// NewLogSender creates a log-only email sender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("provider", "log-email")}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("email (not delivered)", "to", to, "subject", subject, "body", body)
	return nil
}

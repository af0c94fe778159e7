// -----------------------------------------------------------------------
// Mailer Service - SMTP delivery of report emails
// Messages are assembled with go-message and sent over TLS or STARTTLS
// -----------------------------------------------------------------------

package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
)

// Attachment represents an email attachment
type Attachment struct {
	Filename    string // Filename for the attachment
	ContentType string // MIME type (e.g., "text/markdown", "text/plain")
	Content     []byte // Raw content bytes
}

// Service provides email sending functionality from the [notification.email] settings
type Service struct {
	config common.EmailConfig
	logger arbor.ILogger
	now    func() time.Time
}

// NewService creates a new mailer service
func NewService(config common.EmailConfig, logger arbor.ILogger) *Service {
	if config.Port == 0 {
		config.Port = 587
	}
	if config.FromName == "" {
		config.FromName = "StockPulse"
	}
	return &Service{
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// IsConfigured checks if SMTP is configured with minimum required settings
func (s *Service) IsConfigured() bool {
	c := s.config
	return c.Host != "" && c.Username != "" && c.Password != "" && c.From != ""
}

// SendHTMLEmail sends an email with HTML and/or plain text body
func (s *Service) SendHTMLEmail(ctx context.Context, to []string, subject, htmlBody, textBody string) error {
	return s.SendEmailWithAttachments(ctx, to, subject, htmlBody, textBody, nil)
}

// SendEmailWithAttachments sends an email with HTML/text body and file attachments
func (s *Service) SendEmailWithAttachments(ctx context.Context, to []string, subject, htmlBody, textBody string, attachments []Attachment) error {
	if err := s.checkConfig(); err != nil {
		return err
	}
	if len(to) == 0 {
		return fmt.Errorf("no email recipients")
	}

	msg, err := s.BuildMessage(to, subject, htmlBody, textBody, attachments)
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	if s.config.UseTLS {
		err = s.sendWithTLS(addr, auth, s.config.From, to, msg)
	} else {
		err = smtp.SendMail(addr, auth, s.config.From, to, msg)
	}
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("subject", subject).
		Int("recipients", len(to)).
		Int("attachments", len(attachments)).
		Msg("Email sent")
	return nil
}

// BuildMessage renders the full MIME message: a multipart/alternative body
// (text and HTML parts, base64 encoded) followed by any attachments.
func (s *Service) BuildMessage(to []string, subject, htmlBody, textBody string, attachments []Attachment) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetSubject(subject)
	h.SetAddressList("From", []*mail.Address{{Name: s.config.FromName, Address: s.config.From}})

	recipients := make([]*mail.Address, 0, len(to))
	for _, addr := range to {
		recipients = append(recipients, &mail.Address{Address: strings.TrimSpace(addr)})
	}
	h.SetAddressList("To", recipients)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("failed to create inline writer: %w", err)
	}
	if textBody != "" {
		if err := writeInlinePart(iw, "text/plain", textBody); err != nil {
			return nil, err
		}
	}
	if htmlBody != "" {
		if err := writeInlinePart(iw, "text/html", htmlBody); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close inline writer: %w", err)
	}

	for _, att := range attachments {
		var ah mail.AttachmentHeader
		contentType := att.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.Set("Content-Type", contentType)
		ah.Set("Content-Transfer-Encoding", "base64")
		ah.SetFilename(att.Filename)

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", att.Filename, err)
		}
		if _, err := w.Write(att.Content); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close attachment %s: %w", att.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

// base64 keeps long HTML lines within the RFC 5322 998-char limit
func writeInlinePart(iw *mail.InlineWriter, mediaType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(mediaType, map[string]string{"charset": "UTF-8"})
	ph.Set("Content-Transfer-Encoding", "base64")

	w, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", mediaType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("failed to write %s part: %w", mediaType, err)
	}
	return w.Close()
}

func (s *Service) checkConfig() error {
	if s.config.Host == "" {
		return fmt.Errorf("SMTP host not configured")
	}
	if s.config.Username == "" || s.config.Password == "" {
		return fmt.Errorf("SMTP credentials not configured")
	}
	if s.config.From == "" {
		return fmt.Errorf("from email not configured")
	}
	return nil
}

// sendWithTLS sends email using TLS connection (required for Gmail)
func (s *Service) sendWithTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := strings.Split(addr, ":")[0]

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
	})
	if err != nil {
		// Fallback to STARTTLS if direct TLS fails
		s.logger.Debug().Err(err).Str("addr", addr).Msg("Direct TLS failed, trying STARTTLS")
		return s.sendWithSTARTTLS(addr, auth, from, to, msg)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	return deliver(client, auth, from, to, msg)
}

// sendWithSTARTTLS sends email using STARTTLS upgrade
func (s *Service) sendWithSTARTTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := strings.Split(addr, ":")[0]

	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if err := client.StartTLS(&tls.Config{ServerName: host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	return deliver(client, auth, from, to, msg)
}

func deliver(client *smtp.Client, auth smtp.Auth, from string, to []string, msg []byte) error {
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set mail from: %w", err)
	}

	for _, rcpt := range to {
		if err := client.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("failed to set mail recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start data: %w", err)
	}

	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	return client.Quit()
}

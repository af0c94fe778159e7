package notification

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/services/mailer"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// EmailChannel mails the report as HTML with the markdown source attached
type EmailChannel struct {
	mailer *mailer.Service
	to     []string
	md     goldmark.Markdown
	logger arbor.ILogger
}

// NewEmailChannel creates an email channel sending to the given recipients
func NewEmailChannel(m *mailer.Service, to []string, logger arbor.ILogger) *EmailChannel {
	return &EmailChannel{
		mailer: m,
		to:     to,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM, // tables for the overview
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithXHTML(),
			),
		),
		logger: logger,
	}
}

// Name returns the channel name
func (c *EmailChannel) Name() string { return "email" }

// Send mails the rendered report to every recipient
func (c *EmailChannel) Send(ctx context.Context, subject, markdown string) error {
	if !c.mailer.IsConfigured() {
		return fmt.Errorf("email channel enabled but SMTP is not configured")
	}

	htmlBody := c.ToHTML(markdown)
	attachment := mailer.Attachment{
		Filename:    "report.md",
		ContentType: "text/markdown",
		Content:     []byte(markdown),
	}
	return c.mailer.SendEmailWithAttachments(ctx, c.to, subject, htmlBody, markdown, []mailer.Attachment{attachment})
}

// ToHTML converts the markdown report into a styled HTML document
func (c *EmailChannel) ToHTML(markdown string) string {
	if markdown == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := c.md.Convert([]byte(markdown), &buf); err != nil {
		c.logger.Error().Err(err).Int("input_len", len(markdown)).Msg("Failed to convert markdown to HTML")
		return wrapInEmailTemplate("<pre>" + html.EscapeString(markdown) + "</pre>")
	}
	return wrapInEmailTemplate(buf.String())
}

func wrapInEmailTemplate(content string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'PingFang SC', 'Microsoft YaHei', sans-serif; line-height: 1.6; color: #333; max-width: 860px; margin: 0 auto; padding: 20px; }
    h1 { font-size: 22px; border-bottom: 2px solid #eee; padding-bottom: 8px; }
    h2 { font-size: 18px; margin-top: 28px; }
    h3 { font-size: 15px; color: #555; }
    blockquote { border-left: 4px solid #ddd; margin: 12px 0; padding-left: 12px; color: #666; }
    table { border-collapse: collapse; width: 100%; margin: 12px 0; }
    th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
    th { background: #f4f4f4; }
    hr { border: none; border-top: 1px solid #eee; margin: 20px 0; }
  </style>
</head>
<body>
`)
	sb.WriteString(content)
	sb.WriteString(`
</body>
</html>`)
	return sb.String()
}

package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const defaultWebhookMaxBytes = 4000

// WebhookChannel posts the report as JSON, chunked for endpoints with a body limit
type WebhookChannel struct {
	url        string
	maxBytes   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
}

// WebhookPayload is the JSON body posted for each chunk
type WebhookPayload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Part  int    `json:"part"`
	Total int    `json:"total"`
}

// NewWebhookChannel creates a webhook channel. Chunks are posted at most one per second.
func NewWebhookChannel(url string, maxBytes int, timeout time.Duration, logger arbor.ILogger) *WebhookChannel {
	if maxBytes <= 0 {
		maxBytes = defaultWebhookMaxBytes
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &WebhookChannel{
		url:        url,
		maxBytes:   maxBytes,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logger,
	}
}

// Name returns the channel name
func (c *WebhookChannel) Name() string { return "webhook" }

// Send posts the report split into chunks under the byte limit
func (c *WebhookChannel) Send(ctx context.Context, subject, markdown string) error {
	chunks := SplitMessage(markdown, c.maxBytes)
	for i, chunk := range chunks {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		title := subject
		if len(chunks) > 1 {
			title = fmt.Sprintf("%s (%d/%d)", subject, i+1, len(chunks))
		}
		payload := WebhookPayload{Title: title, Text: chunk, Part: i + 1, Total: len(chunks)}
		if err := c.post(ctx, payload); err != nil {
			return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}

	c.logger.Debug().Int("chunks", len(chunks)).Msg("Webhook report posted")
	return nil
}

func (c *WebhookChannel) post(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

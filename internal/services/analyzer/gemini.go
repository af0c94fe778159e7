package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Retry defaults for Gemini quota errors
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 30 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// RetryConfig defines retry behaviour for rate limited Gemini calls
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// NewDefaultRetryConfig returns the default Gemini retry settings
func NewDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// CalculateBackoff computes the wait before retry attempt n (0-based).
// An API-suggested delay replaces the initial backoff. Capped at MaxBackoff.
func (c RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 2*time.Second
	}
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}
	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// IsRateLimitError reports whether err is a Gemini quota error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses "Please retry in 12.5s" style hints, 0 when absent
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// GeminiCompleter implements Completer using the Google GenAI SDK
type GeminiCompleter struct {
	config  common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	retry   RetryConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewGeminiCompleter creates a Gemini completer from the [gemini] settings
func NewGeminiCompleter(ctx context.Context, config common.GeminiConfig, logger arbor.ILogger) (*GeminiCompleter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for gemini analyzer (set GEMINI_API_KEY or gemini.api_key)")
	}
	if config.Model == "" {
		config.Model = defaultGeminiModel
	}
	if config.Timeout == "" {
		config.Timeout = "2m"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Gemini completer initialized")

	return &GeminiCompleter{
		config:  config,
		logger:  logger,
		client:  client,
		timeout: timeout,
		retry:   NewDefaultRetryConfig(),
		sleep:   sleepContext,
	}, nil
}

// Name returns the provider name
func (g *GeminiCompleter) Name() string {
	return "gemini"
}

// Complete generates content, retrying quota errors with backoff
func (g *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.config.Temperature),
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	var lastErr error
	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		text, err := g.generate(ctx, contents, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !IsRateLimitError(err) || attempt == g.retry.MaxRetries {
			break
		}

		wait := g.retry.CalculateBackoff(attempt, ExtractRetryDelay(err))
		g.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Gemini rate limited, backing off")
		if err := g.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("Gemini API call failed: %w", lastErr)
}

func (g *GeminiCompleter) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(timeoutCtx, g.config.Model, contents, cfg)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				out.WriteString(part.Text)
			}
		}
		if out.Len() > 0 {
			break
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from Gemini API")
	}
	return out.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

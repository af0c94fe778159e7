package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
)

const (
	defaultClaudeModel     = "claude-sonnet-4-20250514"
	defaultClaudeMaxTokens = 8192
)

// ClaudeCompleter implements Completer using the Anthropic Messages API
type ClaudeCompleter struct {
	config    common.ClaudeConfig
	logger    arbor.ILogger
	client    anthropic.Client
	timeout   time.Duration
	maxTokens int
}

// NewClaudeCompleter creates a Claude completer from the [claude] settings
func NewClaudeCompleter(config common.ClaudeConfig, logger arbor.ILogger) (*ClaudeCompleter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for Claude analyzer (set ANTHROPIC_API_KEY or claude.api_key)")
	}
	if config.Model == "" {
		config.Model = defaultClaudeModel
	}
	if config.Timeout == "" {
		config.Timeout = "2m"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	c := &ClaudeCompleter{
		config:    config,
		logger:    logger,
		client:    anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		timeout:   timeout,
		maxTokens: maxTokens,
	}

	logger.Debug().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Int("max_tokens", maxTokens).
		Msg("Claude completer initialized")

	return c, nil
}

// Name returns the provider name
func (c *ClaudeCompleter) Name() string {
	return "claude"
}

// Complete sends the prompt and concatenates the text blocks of the reply
func (c *ClaudeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(c.config.Temperature))
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	resp, err := c.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("no response generated from Claude API")
	}

	c.logger.Debug().
		Int("response_length", out.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude completion finished")

	return out.String(), nil
}

package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/templates"
)

// NewAnalyzer builds the analyzer selected by analysis.provider.
// LLM providers are wrapped with the rule analyzer as fallback.
func NewAnalyzer(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.StockAnalyzer, error) {
	rule := NewRuleAnalyzer(logger)

	var completer Completer
	switch config.Analysis.Provider {
	case "", RuleProvider:
		logger.Info().Str("provider", RuleProvider).Msg("Using rule-based analyzer")
		return rule, nil
	case "claude":
		c, err := NewClaudeCompleter(config.Claude, logger)
		if err != nil {
			return nil, err
		}
		completer = c
	case "gemini":
		g, err := NewGeminiCompleter(ctx, config.Gemini, logger)
		if err != nil {
			return nil, err
		}
		completer = g
	default:
		return nil, fmt.Errorf("unsupported analysis provider: %s (supported: rule, claude, gemini)", config.Analysis.Provider)
	}

	tmpl, err := templates.GetTemplate(templates.StockAnalysis, config.Analysis.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis template: %w", err)
	}

	var interval time.Duration
	if config.Analysis.RateLimit != "" {
		interval, err = time.ParseDuration(config.Analysis.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid analysis.rate_limit '%s': %w", config.Analysis.RateLimit, err)
		}
	}

	logger.Info().
		Str("provider", completer.Name()).
		Dur("rate_limit", interval).
		Msg("Using LLM analyzer with rule-based fallback")

	return NewFallbackAnalyzer(NewLLMAnalyzer(completer, tmpl, interval, logger), rule, logger), nil
}

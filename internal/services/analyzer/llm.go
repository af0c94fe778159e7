package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/ternarybob/stockpulse/internal/templates"
	"golang.org/x/time/rate"
)

// LLMAnalyzer renders the stock analysis prompt, sends it through a
// Completer and parses the JSON dashboard out of the reply.
type LLMAnalyzer struct {
	completer Completer
	template  *templates.Template
	limiter   *rate.Limiter
	logger    arbor.ILogger
	now       func() time.Time
}

// NewLLMAnalyzer creates an analyzer. interval is the minimum gap between
// model calls; zero or negative disables limiting.
func NewLLMAnalyzer(completer Completer, tmpl *templates.Template, interval time.Duration, logger arbor.ILogger) *LLMAnalyzer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &LLMAnalyzer{
		completer: completer,
		template:  tmpl,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
		now:       time.Now,
	}
}

// Name returns the underlying provider name
func (a *LLMAnalyzer) Name() string {
	return a.completer.Name()
}

// Analyze asks the model for a decision dashboard for one stock
func (a *LLMAnalyzer) Analyze(ctx context.Context, actx models.AnalysisContext) (*models.AnalysisResult, error) {
	code := actx.Code()
	if code == "" {
		return nil, fmt.Errorf("analysis context has no code")
	}

	payload, err := json.MarshalIndent(actx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode context for %s: %w", code, err)
	}

	date, _ := actx["date"].(string)
	if date == "" {
		date = a.now().Format("2006-01-02")
	}
	prompt, err := a.template.Render(templates.PromptData{
		Code:        code,
		Name:        actx.StockName(),
		Date:        date,
		ContextJSON: string(payload),
	})
	if err != nil {
		return nil, err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	start := time.Now()
	reply, err := a.completer.Complete(ctx, a.template.System, prompt)
	if err != nil {
		return nil, fmt.Errorf("%s completion for %s failed: %w", a.completer.Name(), code, err)
	}

	result, err := ParseResponse(reply)
	if err != nil {
		a.logger.Debug().Str("code", code).Int("reply_length", len(reply)).Msg("Unparseable model reply")
		return nil, fmt.Errorf("%s reply for %s: %w", a.completer.Name(), code, err)
	}

	result.Code = code
	result.Name = actx.StockName()
	result.Provider = a.completer.Name()
	result.AnalyzedAt = a.now()

	a.logger.Info().
		Str("code", code).
		Str("provider", result.Provider).
		Int("score", result.SentimentScore).
		Str("advice", result.OperationAdvice).
		Dur("duration", time.Since(start)).
		Msg("LLM analysis completed")

	return result, nil
}

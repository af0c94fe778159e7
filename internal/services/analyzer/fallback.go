package analyzer

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/models"
)

// FallbackAnalyzer tries primary first and uses fallback when it fails.
// Results produced by the fallback carry the primary error message.
type FallbackAnalyzer struct {
	primary  interfaces.StockAnalyzer
	fallback interfaces.StockAnalyzer
	logger   arbor.ILogger
}

// NewFallbackAnalyzer wraps primary with a fallback analyzer
func NewFallbackAnalyzer(primary, fallback interfaces.StockAnalyzer, logger arbor.ILogger) *FallbackAnalyzer {
	return &FallbackAnalyzer{primary: primary, fallback: fallback, logger: logger}
}

// Name returns the primary analyzer name
func (f *FallbackAnalyzer) Name() string {
	return f.primary.Name()
}

// Analyze runs primary, then fallback on error. Context cancellation is not retried.
func (f *FallbackAnalyzer) Analyze(ctx context.Context, actx models.AnalysisContext) (*models.AnalysisResult, error) {
	result, err := f.primary.Analyze(ctx, actx)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	f.logger.Warn().
		Err(err).
		Str("code", actx.Code()).
		Str("primary", f.primary.Name()).
		Str("fallback", f.fallback.Name()).
		Msg("Primary analyzer failed, using fallback")

	result, fbErr := f.fallback.Analyze(ctx, actx)
	if fbErr != nil {
		return nil, fbErr
	}
	result.ErrorMessage = f.primary.Name() + " 分析失败，已使用规则分析: " + err.Error()
	return result, nil
}

package interfaces

import (
	"context"

	"github.com/ternarybob/stockpulse/internal/models"
)

// TrendAnalyzer derives technical indicators from daily bars
type TrendAnalyzer interface {
	Analyze(code string, bars []models.DailyBar) (*models.TrendAnalysisResult, error)
}

// StockAnalyzer turns an enriched context into an analysis result with a dashboard
type StockAnalyzer interface {
	Analyze(ctx context.Context, analysisCtx models.AnalysisContext) (*models.AnalysisResult, error)
	Name() string
}

package interfaces

import (
	"context"

	"github.com/ternarybob/stockpulse/internal/models"
)

// AnalysisStorage persists analysis results
type AnalysisStorage interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	GetResult(ctx context.Context, id string) (*models.AnalysisResult, error)
	GetLatestByCode(ctx context.Context, code string) (*models.AnalysisResult, error)
	ListByCode(ctx context.Context, code string, limit int) ([]*models.AnalysisResult, error)
	ListByRun(ctx context.Context, runID string) ([]*models.AnalysisResult, error)
	DeleteOlderThan(ctx context.Context, days int) (int, error)
	Close() error
}

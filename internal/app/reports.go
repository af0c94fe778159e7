package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
)

// DefaultHistoryLimit caps History when no limit is given
const DefaultHistoryLimit = 20

// StockReport renders a stored result. ref is either a result ID or a stock
// code; a code resolves to the latest stored result for that code.
func (a *App) StockReport(ctx context.Context, ref string) (string, error) {
	var (
		result *models.AnalysisResult
		err    error
	)
	if _, parseErr := uuid.Parse(ref); parseErr == nil {
		result, err = a.Storage.GetResult(ctx, ref)
	} else {
		result, err = a.Storage.GetLatestByCode(ctx, common.ParseTicker(ref).Code)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load result %s: %w", ref, err)
	}
	return a.NotificationService.GenerateSingleStockReport(result)
}

// History renders up to limit stored results for a stock code, newest first
func (a *App) History(ctx context.Context, ref string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	code := common.ParseTicker(ref).Code
	results, err := a.Storage.ListByCode(ctx, code, limit)
	if err != nil {
		return "", fmt.Errorf("failed to list results for %s: %w", code, err)
	}
	return a.NotificationService.GenerateHistoryReport(code, results), nil
}

// RunReport re-renders the dashboard report of a stored run
func (a *App) RunReport(ctx context.Context, runID string) (string, error) {
	results, err := a.Storage.ListByRun(ctx, runID)
	if err != nil {
		return "", fmt.Errorf("failed to list results for run %s: %w", runID, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("no results stored for run %s", runID)
	}
	return a.NotificationService.GenerateDashboardReport(results)
}

package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/ternarybob/stockpulse/internal/services/notification"
	"github.com/ternarybob/stockpulse/internal/storage"
)

const (
	runID    = "2f1d2c9e-6a51-4c1e-9d0b-8b7f0c3e5a11"
	latestID = "7c0e4b1a-3d2f-4e5a-8b6c-9d0e1f2a3b4c"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	logger := arbor.NewLogger()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Badger.Path = filepath.Join(t.TempDir(), "db")

	store, err := storage.NewAnalysisStorage(logger, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &App{
		Config:              cfg,
		Logger:              logger,
		Storage:             store,
		NotificationService: notification.NewService(logger),
	}
}

func seed(t *testing.T, a *App) {
	t.Helper()
	at := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	results := []*models.AnalysisResult{
		{ID: "older", RunID: "previous-run", Code: "600519", Name: "贵州茅台", SentimentScore: 48,
			TrendPrediction: "震荡", OperationAdvice: "观望", Provider: "rule", AnalyzedAt: at.AddDate(0, 0, -1)},
		{ID: latestID, RunID: runID, Code: "600519", Name: "贵州茅台", SentimentScore: 72,
			TrendPrediction: "看多", OperationAdvice: "买入", Provider: "claude", AnalyzedAt: at,
			Dashboard: models.Dashboard{
				models.DashboardDataPerspective: map[string]interface{}{
					models.BlockTechInterpretation: "MACD 金叉",
				},
			}},
		{ID: "peer", RunID: runID, Code: "000001", Name: "平安银行", SentimentScore: 55,
			TrendPrediction: "震荡", OperationAdvice: "持有", Provider: "rule", AnalyzedAt: at.Add(time.Minute)},
	}
	for _, r := range results {
		require.NoError(t, a.Storage.SaveResult(context.Background(), r))
	}
}

func TestStockReport(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  string
	}{
		{"by code", "600519"},
		{"by prefixed code", "sh600519"},
		{"by result id", latestID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := a.StockReport(ctx, tt.ref)
			require.NoError(t, err)
			assert.Contains(t, report, "贵州茅台 (600519)")
			assert.Contains(t, report, "**建议**: 买入")
			assert.Contains(t, report, "💡 **解读**: MACD 金叉")
		})
	}

	_, err := a.StockReport(ctx, "300750")
	assert.Error(t, err)
}

func TestHistory(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)

	report, err := a.History(context.Background(), "600519", 0)
	require.NoError(t, err)
	assert.Contains(t, report, "贵州茅台 (600519) 历史分析")
	assert.Contains(t, report, "买入")
	assert.Contains(t, report, "观望")
	assert.NotContains(t, report, "平安银行")

	report, err = a.History(context.Background(), "600519", 1)
	require.NoError(t, err)
	assert.Contains(t, report, "买入")
	assert.NotContains(t, report, "观望")
}

func TestRunReport(t *testing.T) {
	a := newTestApp(t)
	seed(t, a)

	report, err := a.RunReport(context.Background(), runID)
	require.NoError(t, err)
	assert.Contains(t, report, "共分析 **2** 只股票")
	assert.Contains(t, report, "贵州茅台")
	assert.Contains(t, report, "平安银行")

	_, err = a.RunReport(context.Background(), "missing-run")
	assert.Error(t, err)
}

package badger

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
)

func newTestStorage(t *testing.T) (*AnalysisStorage, time.Time) {
	t.Helper()
	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, common.BadgerConfig{Path: filepath.Join(t.TempDir(), "db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	s := NewAnalysisStorage(db, logger).(*AnalysisStorage)
	s.now = func() time.Time { return now }
	return s, now
}

func result(id, runID, code string, at time.Time) *models.AnalysisResult {
	return &models.AnalysisResult{
		ID:              id,
		RunID:           runID,
		Code:            code,
		SentimentScore:  66,
		TrendPrediction: "看多",
		OperationAdvice: "持有",
		Dashboard: models.Dashboard{
			models.DashboardDataPerspective: map[string]interface{}{
				models.BlockVolumeAnalysis: map[string]interface{}{"volume_ratio": 1.2, "turnover_rate": "N/A"},
			},
			models.DashboardBattlePlan: map[string]interface{}{
				"action_checklist": []interface{}{"✅ 多头排列"},
			},
		},
		Success:    true,
		AnalyzedAt: at,
	}
}

func TestAnalysisStorage_SaveAndGet(t *testing.T) {
	s, now := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, result("r1", "run-1", "600519", now)))

	got, err := s.GetResult(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "600519", got.Code)
	assert.Equal(t, 66, got.SentimentScore)

	dp, ok := got.Dashboard.DataPerspective()
	require.True(t, ok)
	volume := dp[models.BlockVolumeAnalysis].(map[string]interface{})
	assert.Equal(t, "N/A", volume["turnover_rate"])

	_, err = s.GetResult(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.SaveResult(ctx, &models.AnalysisResult{Code: "600519"}))
}

func TestAnalysisStorage_ListQueries(t *testing.T) {
	s, now := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, result("a", "run-1", "600519", now.Add(-48*time.Hour))))
	require.NoError(t, s.SaveResult(ctx, result("b", "run-2", "600519", now)))
	require.NoError(t, s.SaveResult(ctx, result("c", "run-2", "000001", now.Add(time.Minute))))

	byCode, err := s.ListByCode(ctx, "600519", 0)
	require.NoError(t, err)
	require.Len(t, byCode, 2)
	assert.Equal(t, "b", byCode[0].ID)
	assert.Equal(t, "a", byCode[1].ID)

	latest, err := s.GetLatestByCode(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)

	_, err = s.GetLatestByCode(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)

	byRun, err := s.ListByRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	assert.Equal(t, "b", byRun[0].ID)
	assert.Equal(t, "c", byRun[1].ID)
}

func TestAnalysisStorage_DeleteOlderThan(t *testing.T) {
	s, now := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveResult(ctx, result("old", "run-1", "600519", now.AddDate(0, 0, -40))))
	require.NoError(t, s.SaveResult(ctx, result("new", "run-2", "600519", now)))

	deleted, err := s.DeleteOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = s.GetResult(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetResult(ctx, "new")
	assert.NoError(t, err)

	_, err = s.DeleteOlderThan(ctx, 0)
	assert.Error(t, err)
}

package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/models"
)

// linearBars builds n bars starting at start and moving by step each day
func linearBars(n int, start, step float64) []models.DailyBar {
	bars := make([]models.DailyBar, n)
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := start + step*float64(i)
		bars[i] = models.DailyBar{
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestAnalyze_InsufficientData(t *testing.T) {
	_, err := NewAnalyzer(arbor.NewLogger()).Analyze("600519", linearBars(MinBars-1, 100, 1))
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestAnalyze_Uptrend(t *testing.T) {
	result, err := NewAnalyzer(arbor.NewLogger()).Analyze("600519", linearBars(60, 100, 0.5))
	require.NoError(t, err)

	assert.Equal(t, "600519", result.Code)
	assert.Equal(t, models.TrendBull, result.TrendStatus)
	assert.True(t, result.TrendStatus.IsBullish())
	assert.Equal(t, 129.5, result.CurrentPrice)
	assert.Equal(t, 128.5, result.MA5)
	assert.Greater(t, result.MA5, result.MA10)
	assert.Greater(t, result.MA10, result.MA20)
	assert.Equal(t, models.VolumeNormal, result.VolumeStatus)
	assert.Equal(t, 1.0, result.VolumeRatio5D)
	assert.InDelta(t, 0.78, result.BiasMA5, 0.01)

	require.NotNil(t, result.MACDDIF)
	require.NotNil(t, result.MACDDEA)
	require.NotNil(t, result.MACDBar)
	require.NotNil(t, result.MACDSignal)
	assert.Greater(t, *result.MACDDIF, 0.0)

	require.NotNil(t, result.RSI6)
	require.NotNil(t, result.RSI12)
	require.NotNil(t, result.RSI24)
	assert.InDelta(t, 100.0, *result.RSI6, 0.01)
	assert.Equal(t, "RSI严重超买，注意回调风险", *result.RSISignal)

	assert.NotEmpty(t, result.SignalReasons)
	assert.GreaterOrEqual(t, result.SignalScore, 45)
	assert.Contains(t, []models.BuySignal{models.SignalStrongBuy, models.SignalBuy, models.SignalHold}, result.BuySignal)
}

func TestAnalyze_Downtrend(t *testing.T) {
	result, err := NewAnalyzer(arbor.NewLogger()).Analyze("000001", linearBars(60, 100, -0.5))
	require.NoError(t, err)

	assert.True(t, result.TrendStatus.IsBearish())
	assert.Less(t, result.BiasMA5, 0.0)
	require.NotNil(t, result.MACDDIF)
	assert.Less(t, *result.MACDDIF, 0.0)
	require.NotNil(t, result.RSI6)
	assert.InDelta(t, 0.0, *result.RSI6, 0.01)
	assert.Equal(t, "RSI严重超卖，可能反弹", *result.RSISignal)
	assert.NotEmpty(t, result.RiskFactors)
	assert.Contains(t, []models.BuySignal{models.SignalWait, models.SignalSell, models.SignalStrongSell}, result.BuySignal)
}

func TestAnalyze_ShortHistoryLeavesMACDNil(t *testing.T) {
	result, err := NewAnalyzer(arbor.NewLogger()).Analyze("600519", linearBars(25, 100, 0.5))
	require.NoError(t, err)

	assert.Nil(t, result.MACDDIF)
	assert.Nil(t, result.MACDDEA)
	assert.Nil(t, result.MACDBar)
	assert.Nil(t, result.MACDSignal)
	assert.NotNil(t, result.RSI6)
	assert.NotNil(t, result.RSI24)
}

func TestAnalyze_VolumeStatus(t *testing.T) {
	tests := []struct {
		name       string
		lastVolume float64
		step       float64
		want       models.VolumeStatus
	}{
		{"heavy up", 3000, 0.5, models.VolumeHeavyUp},
		{"heavy down", 3000, -0.5, models.VolumeHeavyDown},
		{"shrink up", 500, 0.5, models.VolumeShrinkUp},
		{"shrink down", 500, -0.5, models.VolumeShrinkDown},
		{"normal", 1100, 0.5, models.VolumeNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := linearBars(30, 100, tt.step)
			bars[len(bars)-1].Volume = tt.lastVolume

			result, err := NewAnalyzer(nil).Analyze("600519", bars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.VolumeStatus)
		})
	}
}

package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
)

const moutaiSnapshot = `{
  "code": "600519",
  "name": "贵州茅台",
  "quote": {"price": 1800, "change_pct": 1.2, "volume_ratio": null, "turnover_rate": 0.35},
  "chip": {"date": "2026-03-02", "profit_ratio": 0.82, "avg_cost": 1712.5, "concentration_90": 0.11},
  "history": [
    {"date": "2026-02-26", "open": 1760, "high": 1775, "low": 1750, "close": 1770, "volume": 21000},
    {"date": "2026-02-27", "open": 1770, "high": 1790, "low": 1765, "close": 1785, "volume": 23000},
    {"date": "2026-03-02", "open": 1785, "high": 1805, "low": 1780, "close": 1800, "volume": 26000}
  ]
}`

func newTestProvider(t *testing.T) *Provider {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "600519.json"), []byte(moutaiSnapshot), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hk00700.json"), []byte(`{"name": "腾讯控股"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "000001.json"), []byte(`{not json`), 0644))
	return NewProvider(dir, arbor.NewLogger())
}

func ticker(t *testing.T, raw string) common.Ticker {
	tk, err := common.ParseTicker(raw)
	require.NoError(t, err)
	return tk
}

func TestProvider_Quote(t *testing.T) {
	p := newTestProvider(t)

	q, err := p.GetRealtimeQuote(context.Background(), ticker(t, "600519"))
	require.NoError(t, err)
	require.NotNil(t, q)

	assert.Equal(t, "贵州茅台", q.Name)
	assert.Equal(t, "snapshot", q.Source)
	assert.Equal(t, 1800.0, *q.Price)
	assert.Nil(t, q.VolumeRatio)
	assert.Equal(t, 0.35, *q.TurnoverRate)
	assert.Nil(t, q.PERatio)

	q, err = p.GetRealtimeQuote(context.Background(), ticker(t, "hk00700"))
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestProvider_Chip(t *testing.T) {
	p := newTestProvider(t)

	chip, err := p.GetChipDistribution(context.Background(), ticker(t, "600519"))
	require.NoError(t, err)
	require.NotNil(t, chip)
	assert.Equal(t, 0.82, *chip.ProfitRatio)
	assert.Equal(t, 1712.5, *chip.AvgCost)
	assert.Nil(t, chip.Concentration70)
	assert.Equal(t, "2026-03-02", chip.Date.Format("2006-01-02"))
	assert.Equal(t, "筹码较集中", chip.Status())

	chip, err = p.GetChipDistribution(context.Background(), ticker(t, "300750"))
	require.NoError(t, err)
	assert.Nil(t, chip)
}

func TestProvider_DailyBars(t *testing.T) {
	p := newTestProvider(t)

	bars, err := p.GetDailyBars(context.Background(), ticker(t, "600519"), 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 1785.0, bars[0].Close)
	assert.Equal(t, "2026-03-02", bars[1].Date.Format("2006-01-02"))

	all, err := p.GetDailyBars(context.Background(), ticker(t, "600519"), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestProvider_Errors(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.GetDailyBars(context.Background(), ticker(t, "300750"), 10)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = p.GetRealtimeQuote(context.Background(), ticker(t, "000001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse snapshot")
}

package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
)

type stubProvider struct {
	name string
	chip *models.ChipDistribution
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) GetRealtimeQuote(ctx context.Context, t common.Ticker) (*models.RealtimeQuote, error) {
	return &models.RealtimeQuote{Code: t.Code, Source: s.name}, nil
}

func (s *stubProvider) GetDailyBars(ctx context.Context, t common.Ticker, days int) ([]models.DailyBar, error) {
	return make([]models.DailyBar, days), nil
}

func (s *stubProvider) GetChipDistribution(ctx context.Context, t common.Ticker) (*models.ChipDistribution, error) {
	return s.chip, nil
}

func TestComposite_RoutesChips(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	chips := &stubProvider{name: "chips", chip: &models.ChipDistribution{Code: "600519", Source: "chips"}}
	tk := common.Ticker{Market: common.MarketSH, Code: "600519"}
	ctx := context.Background()

	c := NewComposite(primary, chips, arbor.NewLogger())
	assert.Equal(t, "primary+chips", c.Name())

	q, err := c.GetRealtimeQuote(ctx, tk)
	require.NoError(t, err)
	assert.Equal(t, "primary", q.Source)

	chip, err := c.GetChipDistribution(ctx, tk)
	require.NoError(t, err)
	assert.Equal(t, "chips", chip.Source)

	bars, err := c.GetDailyBars(ctx, tk, 3)
	require.NoError(t, err)
	assert.Len(t, bars, 3)

	solo := NewComposite(primary, nil, arbor.NewLogger())
	assert.Equal(t, "primary", solo.Name())
	chip, err = solo.GetChipDistribution(ctx, tk)
	require.NoError(t, err)
	assert.Nil(t, chip)
}

func TestNew(t *testing.T) {
	logger := arbor.NewLogger()

	_, err := New(common.DataSourceConfig{Provider: "snapshot"}, logger)
	assert.Error(t, err)

	c, err := New(common.DataSourceConfig{Provider: "snapshot", SnapshotDir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", c.Name())

	_, err = New(common.DataSourceConfig{Provider: "eodhd"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EODHD API key")

	c, err = New(common.DataSourceConfig{
		Provider:    "eodhd",
		SnapshotDir: t.TempDir(),
		EODHD:       common.EODHDConfig{APIKey: "k", Timeout: "5s", RateLimit: 5},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "eodhd+chips", c.Name())

	_, err = New(common.DataSourceConfig{Provider: "eodhd", EODHD: common.EODHDConfig{APIKey: "k", Timeout: "soon"}}, logger)
	assert.Error(t, err)

	_, err = New(common.DataSourceConfig{Provider: "bloomberg"}, logger)
	assert.Error(t, err)
}

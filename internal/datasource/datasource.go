// Package datasource assembles the market data provider used by the pipeline
package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/datasource/snapshot"
	"github.com/ternarybob/stockpulse/internal/eodhd"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/models"
)

// Composite routes quotes and history to a primary provider and chip
// distribution to a dedicated chip source when one is configured.
type Composite struct {
	primary interfaces.MarketDataProvider
	chips   interfaces.ChipProvider
	logger  arbor.ILogger
}

// NewComposite creates a composite provider. chips may be nil.
func NewComposite(primary interfaces.MarketDataProvider, chips interfaces.ChipProvider, logger arbor.ILogger) *Composite {
	return &Composite{primary: primary, chips: chips, logger: logger}
}

// New builds the provider described by the [datasource] config section
func New(config common.DataSourceConfig, logger arbor.ILogger) (*Composite, error) {
	switch config.Provider {
	case "snapshot":
		if config.SnapshotDir == "" {
			return nil, fmt.Errorf("datasource.snapshot_dir is required for the snapshot provider")
		}
		snap := snapshot.NewProvider(config.SnapshotDir, logger)
		return NewComposite(snap, nil, logger), nil

	case "eodhd", "":
		if config.EODHD.APIKey == "" {
			return nil, fmt.Errorf("EODHD API key is required (datasource.eodhd.api_key or EODHD_API_KEY)")
		}

		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.EODHD.RateLimit),
		}
		if config.EODHD.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(config.EODHD.BaseURL))
		}
		if config.EODHD.Timeout != "" {
			timeout, err := time.ParseDuration(config.EODHD.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid datasource.eodhd.timeout: %w", err)
			}
			opts = append(opts, eodhd.WithTimeout(timeout))
		}

		primary := eodhd.NewProvider(eodhd.NewClient(config.EODHD.APIKey, opts...), logger)

		var chips interfaces.ChipProvider
		if config.SnapshotDir != "" {
			chips = snapshot.NewProvider(config.SnapshotDir, logger)
		}
		return NewComposite(primary, chips, logger), nil

	default:
		return nil, fmt.Errorf("unknown datasource provider: %s", config.Provider)
	}
}

func (c *Composite) Name() string {
	if c.chips != nil {
		return c.primary.Name() + "+chips"
	}
	return c.primary.Name()
}

func (c *Composite) GetRealtimeQuote(ctx context.Context, ticker common.Ticker) (*models.RealtimeQuote, error) {
	return c.primary.GetRealtimeQuote(ctx, ticker)
}

func (c *Composite) GetDailyBars(ctx context.Context, ticker common.Ticker, days int) ([]models.DailyBar, error) {
	return c.primary.GetDailyBars(ctx, ticker, days)
}

func (c *Composite) GetChipDistribution(ctx context.Context, ticker common.Ticker) (*models.ChipDistribution, error) {
	if c.chips != nil {
		return c.chips.GetChipDistribution(ctx, ticker)
	}
	return c.primary.GetChipDistribution(ctx, ticker)
}

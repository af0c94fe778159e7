package interfaces

import (
	"context"

	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
)

// QuoteProvider fetches the latest quote for a security
type QuoteProvider interface {
	GetRealtimeQuote(ctx context.Context, ticker common.Ticker) (*models.RealtimeQuote, error)
}

// ChipProvider fetches the holder cost distribution for a security.
// Providers without chip data return (nil, nil).
type ChipProvider interface {
	GetChipDistribution(ctx context.Context, ticker common.Ticker) (*models.ChipDistribution, error)
}

// HistoryProvider fetches daily bars, oldest first
type HistoryProvider interface {
	GetDailyBars(ctx context.Context, ticker common.Ticker, days int) ([]models.DailyBar, error)
}

// MarketDataProvider is the full data surface the pipeline consumes
type MarketDataProvider interface {
	QuoteProvider
	ChipProvider
	HistoryProvider
	Name() string
}

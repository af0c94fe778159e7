package eodhd

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
)

// quoteLookbackDays covers 60 trading days for the 60-day change
const quoteLookbackDays = 100

// Provider serves quotes and daily history from EODHD.
// EODHD publishes no chip distribution, so GetChipDistribution returns nil.
type Provider struct {
	client *Client
	logger arbor.ILogger
	now    func() time.Time

	mu           sync.Mutex
	fundamentals map[string]*FundamentalsResponse
}

// NewProvider wraps a client as a market data provider
func NewProvider(client *Client, logger arbor.ILogger) *Provider {
	return &Provider{
		client:       client,
		logger:       logger,
		now:          time.Now,
		fundamentals: make(map[string]*FundamentalsResponse),
	}
}

func (p *Provider) Name() string { return "eodhd" }

// GetDailyBars returns up to days bars, oldest first
func (p *Provider) GetDailyBars(ctx context.Context, ticker common.Ticker, days int) ([]models.DailyBar, error) {
	symbol := ticker.EODHDSymbol()
	to := p.now()
	// Calendar span large enough to cover weekends and holidays
	from := to.AddDate(0, 0, -(days*7/5 + 14))

	eod, err := p.client.GetEOD(ctx, symbol, WithDateRange(from, to), WithOrder("a"))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch EOD for %s: %w", symbol, err)
	}

	bars := toDailyBars(eod)
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// GetRealtimeQuote combines the delayed quote with recent history and
// fundamentals. Fields EODHD cannot supply are left nil.
func (p *Provider) GetRealtimeQuote(ctx context.Context, ticker common.Ticker) (*models.RealtimeQuote, error) {
	symbol := ticker.EODHDSymbol()

	rt, err := p.client.GetRealTimeQuote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	quote := &models.RealtimeQuote{
		Code:      ticker.Code,
		Name:      ticker.Code,
		Price:     rt.Close.Ptr(),
		ChangePct: rt.ChangePct.Ptr(),
		Source:    p.Name(),
	}

	bars, err := p.GetDailyBars(ctx, ticker, quoteLookbackDays)
	if err != nil {
		p.logger.Warn().Err(err).Str("symbol", symbol).Msg("History unavailable, quote left without volume ratio")
	} else {
		applyHistory(quote, bars, rt.Volume, p.now())
	}

	if f := p.getFundamentals(ctx, symbol); f != nil {
		applyFundamentals(quote, f, rt.Volume)
	}

	return quote, nil
}

func (p *Provider) GetChipDistribution(ctx context.Context, ticker common.Ticker) (*models.ChipDistribution, error) {
	return nil, nil
}

// getFundamentals caches per symbol for the process lifetime. Lower
// subscription tiers get 403/404 here, which is not an error for quotes.
func (p *Provider) getFundamentals(ctx context.Context, symbol string) *FundamentalsResponse {
	p.mu.Lock()
	f, ok := p.fundamentals[symbol]
	p.mu.Unlock()
	if ok {
		return f
	}

	f, err := p.client.GetFundamentals(ctx, symbol)
	if err != nil {
		p.logger.Debug().Err(err).Str("symbol", symbol).Msg("Fundamentals unavailable")
		f = nil
	}

	p.mu.Lock()
	p.fundamentals[symbol] = f
	p.mu.Unlock()
	return f
}

func toDailyBars(eod EODResponse) []models.DailyBar {
	bars := make([]models.DailyBar, 0, len(eod))
	for i, d := range eod {
		bar := models.DailyBar{
			Date:   d.Date,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: float64(d.Volume),
			Amount: d.Close * float64(d.Volume),
		}
		if i > 0 && eod[i-1].Close > 0 {
			bar.ChangePct = (d.Close - eod[i-1].Close) / eod[i-1].Close * 100
		}
		bars = append(bars, bar)
	}
	return bars
}

// applyHistory derives the volume ratio (today vs prior 5-day average) and the 60-day change
func applyHistory(q *models.RealtimeQuote, bars []models.DailyBar, todayVolume Number, now time.Time) {
	n := len(bars)
	if n == 0 {
		return
	}

	volume := bars[n-1].Volume
	prior := bars[:n-1]
	if todayVolume.Valid && !sameDay(bars[n-1].Date, now) {
		// Quote is ahead of the last EOD bar
		volume = todayVolume.Value
		prior = bars
	}
	if len(prior) >= 5 {
		var sum float64
		for _, b := range prior[len(prior)-5:] {
			sum += b.Volume
		}
		if avg := sum / 5; avg > 0 {
			q.VolumeRatio = models.Float(round2(volume / avg))
		}
	}

	if n > 60 && q.Price != nil && bars[n-61].Close > 0 {
		q.Change60D = models.Float(round2((*q.Price - bars[n-61].Close) / bars[n-61].Close * 100))
	}
}

func applyFundamentals(q *models.RealtimeQuote, f *FundamentalsResponse, todayVolume Number) {
	if f.General != nil && f.General.Name != "" {
		q.Name = f.General.Name
	}
	if f.Highlights != nil {
		q.PERatio = f.Highlights.PERatio.Ptr()
		q.TotalMV = f.Highlights.MarketCapitalization.Ptr()
	}
	if f.Valuation != nil {
		q.PBRatio = f.Valuation.PriceBookMRQ.Ptr()
		if q.PERatio == nil {
			q.PERatio = f.Valuation.TrailingPE.Ptr()
		}
	}
	if f.SharesStats != nil && f.SharesStats.SharesFloat.Valid && f.SharesStats.SharesFloat.Value > 0 {
		if q.Price != nil {
			q.CircMV = models.Float(*q.Price * f.SharesStats.SharesFloat.Value)
		}
		if todayVolume.Valid {
			q.TurnoverRate = models.Float(round2(todayVolume.Value / f.SharesStats.SharesFloat.Value * 100))
		}
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

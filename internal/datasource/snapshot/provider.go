// Package snapshot serves market data from JSON files on disk, one file per
// security. It is the only source of chip distribution data and doubles as
// an offline source for tests and replays.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/models"
)

// ErrNoSnapshot is returned when no file exists for a security
var ErrNoSnapshot = errors.New("no snapshot for security")

const dateLayout = "2006-01-02"

// File is the on-disk layout of <dir>/<code>.json
type File struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Quote   *Quote `json:"quote,omitempty"`
	Chip    *Chip  `json:"chip,omitempty"`
	History []Bar  `json:"history,omitempty"`
}

// Quote mirrors models.RealtimeQuote; null or missing fields stay nil
type Quote struct {
	Price        *float64 `json:"price"`
	ChangePct    *float64 `json:"change_pct"`
	VolumeRatio  *float64 `json:"volume_ratio"`
	TurnoverRate *float64 `json:"turnover_rate"`
	PERatio      *float64 `json:"pe_ratio"`
	PBRatio      *float64 `json:"pb_ratio"`
	TotalMV      *float64 `json:"total_mv"`
	CircMV       *float64 `json:"circ_mv"`
	Change60D    *float64 `json:"change_60d"`
}

// Chip mirrors models.ChipDistribution with a plain date string
type Chip struct {
	Date            string   `json:"date"`
	ProfitRatio     *float64 `json:"profit_ratio"`
	AvgCost         *float64 `json:"avg_cost"`
	Concentration90 *float64 `json:"concentration_90"`
	Concentration70 *float64 `json:"concentration_70"`
}

// Bar is one daily bar with a plain date string
type Bar struct {
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Amount    float64 `json:"amount"`
	ChangePct float64 `json:"pct_chg"`
}

// Provider reads snapshot files from a directory
type Provider struct {
	dir    string
	logger arbor.ILogger
}

// NewProvider creates a snapshot provider rooted at dir
func NewProvider(dir string, logger arbor.ILogger) *Provider {
	return &Provider{dir: dir, logger: logger}
}

func (p *Provider) Name() string { return "snapshot" }

func (p *Provider) GetRealtimeQuote(ctx context.Context, ticker common.Ticker) (*models.RealtimeQuote, error) {
	f, err := p.Load(ticker)
	if err != nil {
		return nil, err
	}
	if f.Quote == nil {
		return nil, nil
	}

	q := f.Quote
	return &models.RealtimeQuote{
		Code:         ticker.Code,
		Name:         f.displayName(ticker),
		Price:        q.Price,
		ChangePct:    q.ChangePct,
		VolumeRatio:  q.VolumeRatio,
		TurnoverRate: q.TurnoverRate,
		PERatio:      q.PERatio,
		PBRatio:      q.PBRatio,
		TotalMV:      q.TotalMV,
		CircMV:       q.CircMV,
		Change60D:    q.Change60D,
		Source:       p.Name(),
	}, nil
}

// GetChipDistribution returns (nil, nil) when the security has no snapshot
// or the snapshot has no chip section.
func (p *Provider) GetChipDistribution(ctx context.Context, ticker common.Ticker) (*models.ChipDistribution, error) {
	f, err := p.Load(ticker)
	if errors.Is(err, ErrNoSnapshot) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if f.Chip == nil {
		return nil, nil
	}

	chip := &models.ChipDistribution{
		Code:            ticker.Code,
		ProfitRatio:     f.Chip.ProfitRatio,
		AvgCost:         f.Chip.AvgCost,
		Concentration90: f.Chip.Concentration90,
		Concentration70: f.Chip.Concentration70,
		Source:          p.Name(),
	}
	if f.Chip.Date != "" {
		d, err := time.Parse(dateLayout, f.Chip.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid chip date %q for %s: %w", f.Chip.Date, ticker, err)
		}
		chip.Date = d
	}
	return chip, nil
}

// GetDailyBars returns the last days bars from the snapshot, oldest first
func (p *Provider) GetDailyBars(ctx context.Context, ticker common.Ticker, days int) ([]models.DailyBar, error) {
	f, err := p.Load(ticker)
	if err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(f.History))
	for _, b := range f.History {
		d, err := time.Parse(dateLayout, b.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid bar date %q for %s: %w", b.Date, ticker, err)
		}
		bars = append(bars, models.DailyBar{
			Date:      d,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
			ChangePct: b.ChangePct,
		})
	}

	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// Load reads the snapshot for a ticker. <code>.json is tried first, then
// the market-prefixed form such as sh600519.json.
func (p *Provider) Load(ticker common.Ticker) (*File, error) {
	candidates := []string{
		filepath.Join(p.dir, ticker.Code+".json"),
		filepath.Join(p.dir, strings.ToLower(string(ticker.Market))+ticker.Code+".json"),
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
		}

		var f File
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
		}
		if p.logger != nil {
			p.logger.Debug().Str("path", path).Int("bars", len(f.History)).Msg("Snapshot loaded")
		}
		return &f, nil
	}

	return nil, fmt.Errorf("%s: %w", ticker, ErrNoSnapshot)
}

func (f *File) displayName(ticker common.Ticker) string {
	if f.Name != "" {
		return f.Name
	}
	return ticker.Code
}

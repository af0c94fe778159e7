// Package pipeline runs the daily analysis: fetch market data, compute the
// trend, enrich the context, analyze, store and deliver the report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/ternarybob/stockpulse/internal/trend"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryDays is used when no history window is configured
const DefaultHistoryDays = 90

// Reporter renders and delivers the batch report
type Reporter interface {
	GenerateDashboardReport(results []*models.AnalysisResult) (string, error)
	Notify(ctx context.Context, results []*models.AnalysisResult) (string, error)
}

// Options tunes a pipeline
type Options struct {
	HistoryDays int
	Concurrency int
}

// Pipeline wires the data, analysis, storage and delivery stages.
// storage and reporter are optional.
type Pipeline struct {
	data     interfaces.MarketDataProvider
	trend    interfaces.TrendAnalyzer
	analyzer interfaces.StockAnalyzer
	storage  interfaces.AnalysisStorage
	reporter Reporter
	opts     Options
	logger   arbor.ILogger
	newID    func() string
	now      func() time.Time
}

// New creates a pipeline
func New(
	data interfaces.MarketDataProvider,
	trendAnalyzer interfaces.TrendAnalyzer,
	analyzer interfaces.StockAnalyzer,
	storage interfaces.AnalysisStorage,
	reporter Reporter,
	opts Options,
	logger arbor.ILogger,
) *Pipeline {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = DefaultHistoryDays
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Pipeline{
		data:     data,
		trend:    trendAnalyzer,
		analyzer: analyzer,
		storage:  storage,
		reporter: reporter,
		opts:     opts,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// StockError records a stock that could not be analyzed
type StockError struct {
	Code string
	Err  error
}

// RunResult summarises one batch run
type RunResult struct {
	RunID      string
	Results    []*models.AnalysisResult // input order, failed stocks omitted
	Failed     []StockError
	Report     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run analyzes every ticker, stores the results and delivers the report.
// A failing stock is logged and omitted; the batch continues. With dryRun
// the report is rendered but neither stored nor delivered.
func (p *Pipeline) Run(ctx context.Context, tickers []common.Ticker, dryRun bool) (*RunResult, error) {
	run := &RunResult{RunID: p.newID(), StartedAt: p.now()}

	p.logger.Info().
		Str("run_id", run.RunID).
		Int("stocks", len(tickers)).
		Int("concurrency", p.opts.Concurrency).
		Str("analyzer", p.analyzer.Name()).
		Str("datasource", p.data.Name()).
		Msg("Analysis run started")

	slots := make([]*models.AnalysisResult, len(tickers))
	errs := make([]error, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, ticker := range tickers {
		g.Go(func() error {
			err := common.RecoverToError("analyze "+ticker.String(), func() error {
				result, err := p.ProcessStock(gctx, ticker)
				if err != nil {
					return err
				}
				slots[i] = result
				return nil
			})
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis run cancelled: %w", err)
	}

	for i, ticker := range tickers {
		if errs[i] != nil {
			p.logger.Error().Err(errs[i]).Str("code", ticker.Code).Msg("Stock analysis failed")
			run.Failed = append(run.Failed, StockError{Code: ticker.Code, Err: errs[i]})
			continue
		}
		slots[i].RunID = run.RunID
		run.Results = append(run.Results, slots[i])
	}

	if !dryRun && p.storage != nil {
		for _, r := range run.Results {
			if err := p.storage.SaveResult(ctx, r); err != nil {
				p.logger.Warn().Err(err).Str("code", r.Code).Msg("Failed to store analysis result")
			}
		}
	}

	var deliverErr error
	if p.reporter != nil {
		if dryRun {
			run.Report, deliverErr = p.reporter.GenerateDashboardReport(run.Results)
		} else {
			run.Report, deliverErr = p.reporter.Notify(ctx, run.Results)
		}
	}
	run.FinishedAt = p.now()

	p.logger.Info().
		Str("run_id", run.RunID).
		Int("succeeded", len(run.Results)).
		Int("failed", len(run.Failed)).
		Bool("dry_run", dryRun).
		Dur("duration", run.FinishedAt.Sub(run.StartedAt)).
		Msg("Analysis run finished")

	if deliverErr != nil {
		return run, fmt.Errorf("report delivery failed: %w", deliverErr)
	}
	return run, nil
}

// ProcessStock runs the per-stock stages. Quote and chip failures degrade
// the context; a history failure fails the stock.
func (p *Pipeline) ProcessStock(ctx context.Context, ticker common.Ticker) (*models.AnalysisResult, error) {
	var (
		quote *models.RealtimeQuote
		chip  *models.ChipDistribution
		bars  []models.DailyBar
	)

	var g errgroup.Group
	g.Go(func() error {
		q, err := p.data.GetRealtimeQuote(ctx, ticker)
		if err != nil {
			p.logger.Warn().Err(err).Str("code", ticker.Code).Msg("Realtime quote unavailable")
			return nil
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		c, err := p.data.GetChipDistribution(ctx, ticker)
		if err != nil {
			p.logger.Warn().Err(err).Str("code", ticker.Code).Msg("Chip distribution unavailable")
			return nil
		}
		chip = c
		return nil
	})
	g.Go(func() error {
		b, err := p.data.GetDailyBars(ctx, ticker, p.opts.HistoryDays)
		if err != nil {
			return fmt.Errorf("failed to fetch history: %w", err)
		}
		bars = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	trendResult, err := p.trend.Analyze(ticker.Code, bars)
	if err != nil {
		if !errors.Is(err, trend.ErrInsufficientData) {
			return nil, fmt.Errorf("trend analysis failed: %w", err)
		}
		p.logger.Warn().Str("code", ticker.Code).Int("bars", len(bars)).Msg("Not enough history for trend analysis")
		trendResult = nil
	}

	name := ""
	if quote != nil {
		name = quote.Name
	}

	actx := EnhanceContext(BuildBaseContext(ticker.Code, bars), quote, chip, trendResult, name)

	result, err := p.analyzer.Analyze(ctx, actx)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if result.ID == "" {
		result.ID = p.newID()
	}
	if result.Name == "" {
		result.Name = name
	}

	p.logger.Debug().
		Str("code", ticker.Code).
		Int("score", result.SentimentScore).
		Str("advice", result.OperationAdvice).
		Msg("Stock analyzed")

	return result, nil
}

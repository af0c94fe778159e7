package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/common"
	"github.com/ternarybob/stockpulse/internal/datasource"
	"github.com/ternarybob/stockpulse/internal/interfaces"
	"github.com/ternarybob/stockpulse/internal/pipeline"
	"github.com/ternarybob/stockpulse/internal/services/analyzer"
	"github.com/ternarybob/stockpulse/internal/services/mailer"
	"github.com/ternarybob/stockpulse/internal/services/notification"
	"github.com/ternarybob/stockpulse/internal/services/scheduler"
	"github.com/ternarybob/stockpulse/internal/storage"
	"github.com/ternarybob/stockpulse/internal/trend"
)

// DailyJobName is the scheduler job that runs the full analysis
const DailyJobName = "daily_analysis"

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	DataSource          interfaces.MarketDataProvider
	Analyzer            interfaces.StockAnalyzer
	Storage             interfaces.AnalysisStorage
	NotificationService *notification.Service
	Pipeline            *pipeline.Pipeline
	SchedulerService    *scheduler.Service

	ctx       context.Context
	cancelCtx context.CancelFunc
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		Logger:    logger,
		ctx:       ctx,
		cancelCtx: cancel,
	}

	if err := app.initStorage(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := app.initServices(); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("datasource", app.DataSource.Name()).
		Str("analyzer", app.Analyzer.Name()).
		Strs("channels", app.NotificationService.Channels()).
		Msg("Application initialized")

	return app, nil
}

func (a *App) initStorage() error {
	store, err := storage.NewAnalysisStorage(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.Storage = store
	return nil
}

func (a *App) initServices() error {
	ds, err := datasource.New(a.Config.DataSource, a.Logger)
	if err != nil {
		return fmt.Errorf("datasource: %w", err)
	}
	a.DataSource = ds

	a.Analyzer, err = analyzer.NewAnalyzer(a.ctx, a.Config, a.Logger)
	if err != nil {
		return fmt.Errorf("analyzer: %w", err)
	}

	channels, err := a.buildChannels()
	if err != nil {
		return fmt.Errorf("notification: %w", err)
	}
	a.NotificationService = notification.NewService(a.Logger, channels...)

	a.Pipeline = pipeline.New(
		a.DataSource,
		trend.NewAnalyzer(a.Logger),
		a.Analyzer,
		a.Storage,
		a.NotificationService,
		pipeline.Options{
			HistoryDays: a.Config.DataSource.HistoryDays,
			Concurrency: a.Config.Analysis.Concurrency,
		},
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(a.Logger)
	return nil
}

func (a *App) buildChannels() ([]interfaces.NotificationChannel, error) {
	cfg := a.Config.Notification
	var channels []interfaces.NotificationChannel

	for _, name := range cfg.Channels {
		switch name {
		case "file":
			channels = append(channels, notification.NewFileChannel(cfg.ReportDir, a.Logger))
		case "email":
			m := mailer.NewService(cfg.Email, a.Logger)
			if !m.IsConfigured() {
				a.Logger.Warn().Msg("Email channel enabled but SMTP is not fully configured, skipping")
				continue
			}
			channels = append(channels, notification.NewEmailChannel(m, cfg.Email.To, a.Logger))
		case "webhook":
			var timeout time.Duration
			if cfg.Webhook.Timeout != "" {
				d, err := time.ParseDuration(cfg.Webhook.Timeout)
				if err != nil {
					return nil, fmt.Errorf("invalid notification.webhook.timeout '%s': %w", cfg.Webhook.Timeout, err)
				}
				timeout = d
			}
			channels = append(channels, notification.NewWebhookChannel(cfg.Webhook.URL, cfg.Webhook.MaxBytes, timeout, a.Logger))
		default:
			return nil, fmt.Errorf("unknown notification channel: %s", name)
		}
	}
	return channels, nil
}

// RunOnce analyzes the configured stock list and delivers the report
func (a *App) RunOnce(ctx context.Context, dryRun bool) (*pipeline.RunResult, error) {
	tickers, err := common.ResolveStockList(a.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve stock list: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no stocks configured (set stocks.list, STOCK_LIST or -stocks)")
	}

	run, err := a.Pipeline.Run(ctx, tickers, dryRun)
	if err != nil {
		return run, err
	}

	if !dryRun && a.Config.Storage.RetentionDays > 0 {
		if _, err := a.Storage.DeleteOlderThan(ctx, a.Config.Storage.RetentionDays); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to prune old analysis results")
		}
	}
	return run, nil
}

// StartSchedule registers the daily job on schedule.cron and starts the
// scheduler. With runNow the job also runs once immediately. Cancelling ctx
// aborts any job in progress.
func (a *App) StartSchedule(ctx context.Context, runNow bool) error {
	context.AfterFunc(ctx, a.cancelCtx)

	err := a.SchedulerService.RegisterJob(DailyJobName, a.Config.Schedule.Cron, func() error {
		_, err := a.RunOnce(a.ctx, false)
		return err
	})
	if err != nil {
		return err
	}
	if err := a.SchedulerService.Start(); err != nil {
		return err
	}

	if runNow {
		if err := a.SchedulerService.TriggerJob(DailyJobName); err != nil {
			a.Logger.Error().Err(err).Str("job", DailyJobName).Msg("Immediate run failed")
		}
	}

	if status, err := a.SchedulerService.GetJobStatus(DailyJobName); err == nil && status.NextRun != nil {
		a.Logger.Info().
			Str("job", status.Name).
			Int("runs", status.Runs).
			Str("next_run", status.NextRun.Format("2006-01-02 15:04:05")).
			Msg("Daily analysis scheduled")
	}
	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/app"
	"github.com/ternarybob/stockpulse/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	stocks       = flag.String("stocks", "", "Comma separated stock codes (overrides config)")
	analyzerName = flag.String("analyzer", "", "Analyzer provider: rule, claude or gemini (overrides config)")
	schedule     = flag.Bool("schedule", false, "Run on schedule.cron instead of once")
	dryRun       = flag.Bool("dry-run", false, "Render the report to stdout without storing or delivering it")
	runNow       = flag.Bool("run-now", false, "With -schedule, also run the analysis once at startup")
	reportRef    = flag.String("report", "", "Print the stored report for a result ID, or the latest one for a stock code")
	historyCode  = flag.String("history", "", "Print stored analysis history for a stock code")
	historyLimit = flag.Int("limit", app.DefaultHistoryLimit, "Number of records shown by -history")
	runReport    = flag.String("run", "", "Re-render the report of a stored run ID")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("StockPulse version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("stockpulse.toml"); err == nil {
			configFiles = append(configFiles, "stockpulse.toml")
		} else if _, err := os.Stat("deployments/local/stockpulse.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/stockpulse.toml")
		}
	}

	// .env is optional; real environment variables win
	_ = godotenv.Load()

	// Startup order: config (defaults -> files -> env) -> CLI overrides -> logger -> banner
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *stocks, *analyzerName)
	if *schedule {
		config.Schedule.Enabled = true
	}

	logger := common.InitLogger(config)

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *reportRef != "" || *historyCode != "" || *runReport != "" {
		var report string
		switch {
		case *reportRef != "":
			report, err = application.StockReport(ctx, *reportRef)
		case *historyCode != "":
			report, err = application.History(ctx, *historyCode, *historyLimit)
		default:
			report, err = application.RunReport(ctx, *runReport)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to load stored analysis")
			application.Close()
			os.Exit(1)
		}
		fmt.Println(report)
		return
	}

	if !config.Schedule.Enabled {
		run, err := application.RunOnce(ctx, *dryRun)
		if run != nil && *dryRun {
			fmt.Println(run.Report)
		}
		if err != nil {
			logger.Error().Err(err).Msg("Analysis run failed")
			application.Close()
			os.Exit(1)
		}
		return
	}

	if err := application.StartSchedule(ctx, *runNow); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
		os.Exit(1)
	}

	logger.Info().
		Str("cron", config.Schedule.Cron).
		Msg("Scheduler ready - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received, shutting down")
}

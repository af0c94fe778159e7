package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment  string             `toml:"environment" validate:"oneof=development production"`
	Stocks       StocksConfig       `toml:"stocks"`
	Logging      LoggingConfig      `toml:"logging"`
	Storage      StorageConfig      `toml:"storage"`
	DataSource   DataSourceConfig   `toml:"datasource"`
	Analysis     AnalysisConfig     `toml:"analysis"`
	Claude       ClaudeConfig       `toml:"claude"`
	Gemini       GeminiConfig       `toml:"gemini"`
	Notification NotificationConfig `toml:"notification"`
	Schedule     ScheduleConfig     `toml:"schedule"`
}

// StocksConfig lists the securities analysed on each run
type StocksConfig struct {
	List          []string `toml:"list"`           // Security codes, e.g. ["600519", "hk00700"]
	WatchlistFile string   `toml:"watchlist_file"` // Optional YAML/TOML file with additional codes
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"`
	FileName   string   `toml:"file_name"`
}

type StorageConfig struct {
	Badger        BadgerConfig `toml:"badger"`
	RetentionDays int          `toml:"retention_days" validate:"gte=0"` // 0 keeps results forever
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// DataSourceConfig selects where quotes, chip data and daily bars come from
type DataSourceConfig struct {
	Provider    string      `toml:"provider" validate:"oneof=eodhd snapshot"`
	SnapshotDir string      `toml:"snapshot_dir"` // Directory of <code>.json snapshots (chip data always read from here when set)
	HistoryDays int         `toml:"history_days" validate:"gte=30"`
	EODHD       EODHDConfig `toml:"eodhd"`
}

type EODHDConfig struct {
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit" validate:"gte=0"` // Requests per second
	Timeout   string `toml:"timeout"`
}

// AnalysisConfig controls how enriched contexts become analysis results
type AnalysisConfig struct {
	Provider     string `toml:"provider" validate:"oneof=rule claude gemini"`
	Concurrency  int    `toml:"concurrency" validate:"gte=1,lte=32"`
	TemplatesDir string `toml:"templates_dir"` // Optional override directory for prompt templates
	RateLimit    string `toml:"rate_limit"`    // Minimum interval between LLM calls, e.g. "2s"
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// NotificationConfig selects delivery channels for the rendered report
type NotificationConfig struct {
	Channels  []string      `toml:"channels" validate:"dive,oneof=file email webhook"`
	ReportDir string        `toml:"report_dir"`
	Email     EmailConfig   `toml:"email"`
	Webhook   WebhookConfig `toml:"webhook"`
}

type EmailConfig struct {
	Host     string   `toml:"smtp_host"`
	Port     int      `toml:"smtp_port"`
	Username string   `toml:"smtp_username"`
	Password string   `toml:"smtp_password"`
	From     string   `toml:"smtp_from"`
	FromName string   `toml:"smtp_from_name"`
	UseTLS   bool     `toml:"smtp_use_tls"`
	To       []string `toml:"to"`
}

type WebhookConfig struct {
	URL      string `toml:"url"`
	MaxBytes int    `toml:"max_bytes"` // Chunk size limit for long reports
	Timeout  string `toml:"timeout"`
}

// ScheduleConfig enables recurring runs
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // Standard 5-field cron, e.g. "0 18 * * 1-5"
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
			FileName:   "stockpulse.log",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			RetentionDays: 180,
		},
		DataSource: DataSourceConfig{
			Provider:    "eodhd",
			HistoryDays: 120, // Enough bars for MA20, MACD(12,26,9) and RSI24
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Analysis: AnalysisConfig{
			Provider:    "rule",
			Concurrency: 3,
			RateLimit:   "2s",
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.7,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			Temperature: 0.7,
		},
		Notification: NotificationConfig{
			Channels:  []string{"file"},
			ReportDir: "./reports",
			Email: EmailConfig{
				Port:     587,
				UseTLS:   true,
				FromName: "StockPulse",
			},
			Webhook: WebhookConfig{
				MaxBytes: 4000, // IM bots cap bodies near 4KB
				Timeout:  "10s",
			},
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 18 * * 1-5", // Weekdays after the close
		},
	}
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env.
// Later files override earlier files; CLI flags are applied afterwards by the caller.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKPULSE_ENV"); env != "" {
		config.Environment = env
	}

	// STOCK_LIST replaces the configured list entirely
	if list := os.Getenv("STOCK_LIST"); list != "" {
		config.Stocks.List = SplitCodeList(list)
	}

	if level := os.Getenv("STOCKPULSE_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("STOCKPULSE_LOG_OUTPUT"); output != "" {
		config.Logging.Output = SplitCodeList(output)
	}

	if path := os.Getenv("STOCKPULSE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if provider := os.Getenv("STOCKPULSE_DATASOURCE"); provider != "" {
		config.DataSource.Provider = provider
	}
	if dir := os.Getenv("STOCKPULSE_SNAPSHOT_DIR"); dir != "" {
		config.DataSource.SnapshotDir = dir
	}
	if key := os.Getenv("EODHD_API_KEY"); key != "" {
		config.DataSource.EODHD.APIKey = key
	}

	if provider := os.Getenv("STOCKPULSE_ANALYZER"); provider != "" {
		config.Analysis.Provider = provider
	}
	if c := os.Getenv("STOCKPULSE_CONCURRENCY"); c != "" {
		if n, err := strconv.Atoi(c); err == nil {
			config.Analysis.Concurrency = n
		}
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}

	if channels := os.Getenv("STOCKPULSE_CHANNELS"); channels != "" {
		config.Notification.Channels = SplitCodeList(channels)
	}
	if url := os.Getenv("STOCKPULSE_WEBHOOK_URL"); url != "" {
		config.Notification.Webhook.URL = url
	}
	if pw := os.Getenv("STOCKPULSE_SMTP_PASSWORD"); pw != "" {
		config.Notification.Email.Password = pw
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, stocks string, analyzer string) {
	if stocks != "" {
		config.Stocks.List = SplitCodeList(stocks)
	}
	if analyzer != "" {
		config.Analysis.Provider = analyzer
	}
}

var configValidator = validator.New()

// Validate checks struct constraints and cross-field requirements
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.DataSource.Provider == "snapshot" && c.DataSource.SnapshotDir == "" {
		return fmt.Errorf("datasource.snapshot_dir is required when provider is snapshot")
	}
	if c.DataSource.Provider == "eodhd" && c.DataSource.EODHD.APIKey == "" {
		return fmt.Errorf("EODHD API key is required (set EODHD_API_KEY or datasource.eodhd.api_key)")
	}
	if c.Analysis.Provider == "claude" && c.Claude.APIKey == "" {
		return fmt.Errorf("Anthropic API key is required for claude analyzer (set ANTHROPIC_API_KEY or claude.api_key)")
	}
	if c.Analysis.Provider == "gemini" && c.Gemini.APIKey == "" {
		return fmt.Errorf("Gemini API key is required for gemini analyzer (set GEMINI_API_KEY or gemini.api_key)")
	}

	for _, ch := range c.Notification.Channels {
		switch ch {
		case "email":
			if c.Notification.Email.Host == "" || len(c.Notification.Email.To) == 0 {
				return fmt.Errorf("email channel requires notification.email.smtp_host and notification.email.to")
			}
		case "webhook":
			if c.Notification.Webhook.URL == "" {
				return fmt.Errorf("webhook channel requires notification.webhook.url")
			}
		}
	}

	if c.Schedule.Enabled {
		if err := ValidateSchedule(c.Schedule.Cron); err != nil {
			return err
		}
	}

	return nil
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

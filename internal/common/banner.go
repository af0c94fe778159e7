package common

import (
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and logs the resolved run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	if !config.IsProduction() {
		banner.PrintSimple(AppName, GetVersion())
	}

	logger.Info().
		Str("version", GetFullVersion()).
		Str("environment", config.Environment).
		Str("datasource", config.DataSource.Provider).
		Str("analyzer", config.Analysis.Provider).
		Str("channels", strings.Join(config.Notification.Channels, ",")).
		Int("stocks", len(config.Stocks.List)).
		Msg("StockPulse starting")
}

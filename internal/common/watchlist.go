package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// watchlistFile is the on-disk shape of a watch list, in either YAML or TOML:
//
//	stocks:
//	  - 600519
//	  - hk00700
type watchlistFile struct {
	Stocks []string `yaml:"stocks" toml:"stocks"`
}

// LoadWatchlist reads security codes from a .yaml/.yml or .toml file
func LoadWatchlist(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist %s: %w", path, err)
	}

	var wl watchlistFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &wl)
	case ".toml":
		err = toml.Unmarshal(data, &wl)
	default:
		return nil, fmt.Errorf("unsupported watchlist format %q (use .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse watchlist %s: %w", path, err)
	}

	codes := make([]string, 0, len(wl.Stocks))
	for _, s := range wl.Stocks {
		if s = strings.TrimSpace(s); s != "" {
			codes = append(codes, s)
		}
	}
	return codes, nil
}

// ResolveStockList merges the configured list with the watch list file.
// Codes are normalised and de-duplicated, keeping first-seen order.
func ResolveStockList(config *Config) ([]Ticker, error) {
	codes := append([]string{}, config.Stocks.List...)
	if config.Stocks.WatchlistFile != "" {
		extra, err := LoadWatchlist(config.Stocks.WatchlistFile)
		if err != nil {
			return nil, err
		}
		codes = append(codes, extra...)
	}
	return ParseTickers(codes), nil
}

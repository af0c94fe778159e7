package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		input      string
		wantMarket Market
		wantCode   string
		wantString string
		wantEODHD  string
	}{
		// Bare A-share codes
		{"600519", MarketSH, "600519", "SH:600519", "600519.SHG"},
		{"900901", MarketSH, "900901", "SH:900901", "900901.SHG"},
		{"000001", MarketSZ, "000001", "SZ:000001", "000001.SHE"},
		{"300750", MarketSZ, "300750", "SZ:300750", "300750.SHE"},
		{"830799", MarketBJ, "830799", "BJ:830799", "830799.BJ"},
		{"920118", MarketBJ, "920118", "BJ:920118", "920118.BJ"},

		// Prefixed and suffixed forms
		{"sh600519", MarketSH, "600519", "SH:600519", "600519.SHG"},
		{"SH.600519", MarketSH, "600519", "SH:600519", "600519.SHG"},
		{"600519.SH", MarketSH, "600519", "SH:600519", "600519.SHG"},
		{"sz:000001", MarketSZ, "000001", "SZ:000001", "000001.SHE"},

		// Hong Kong
		{"hk00700", MarketHK, "00700", "HK:00700", "0700.HK"},
		{"00700.HK", MarketHK, "00700", "HK:00700", "0700.HK"},
		{"HK:700", MarketHK, "00700", "HK:00700", "0700.HK"},
		{"00700", MarketHK, "00700", "HK:00700", "0700.HK"},

		// US, including codes that start with a market prefix
		{"AAPL", MarketUS, "AAPL", "US:AAPL", "AAPL.US"},
		{"us.aapl", MarketUS, "AAPL", "US:AAPL", "AAPL.US"},
		{"SHOP", MarketUS, "SHOP", "US:SHOP", "SHOP.US"},
		{"USB", MarketUS, "USB", "US:USB", "USB.US"},

		// Whitespace
		{"  600519  ", MarketSH, "600519", "SH:600519", "600519.SHG"},

		// Empty input
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input)
			assert.Equal(t, tt.wantMarket, result.Market, "market")
			assert.Equal(t, tt.wantCode, result.Code, "code")
			assert.Equal(t, tt.wantString, result.String(), "String()")
			assert.Equal(t, tt.wantEODHD, result.EODHDSymbol(), "EODHDSymbol()")
		})
	}
}

func TestTicker_IsAShare(t *testing.T) {
	assert.True(t, ParseTicker("600519").IsAShare())
	assert.True(t, ParseTicker("000001").IsAShare())
	assert.True(t, ParseTicker("830799").IsAShare())
	assert.False(t, ParseTicker("hk00700").IsAShare())
	assert.False(t, ParseTicker("AAPL").IsAShare())
}

func TestParseTickers(t *testing.T) {
	result := ParseTickers([]string{"600519", "", "sh600519", "000001", "  "})

	assert.Len(t, result, 2, "empty entries and duplicates are dropped")
	assert.Equal(t, "SH:600519", result[0].String())
	assert.Equal(t, "SZ:000001", result[1].String())
}

func TestSplitCodeList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"comma", "600519,000001", []string{"600519", "000001"}},
		{"mixed separators", "600519, 000001;300750 hk00700", []string{"600519", "000001", "300750", "hk00700"}},
		{"full width comma", "600519，000001", []string{"600519", "000001"}},
		{"empty", "", []string{}},
		{"only separators", " , ; ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitCodeList(tt.input))
		})
	}
}

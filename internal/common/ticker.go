// Package common provides shared utilities across the application.
package common

import (
	"strings"
	"unicode"
)

// Market identifies the listing venue of a security
type Market string

const (
	MarketSH Market = "SH" // Shanghai
	MarketSZ Market = "SZ" // Shenzhen
	MarketBJ Market = "BJ" // Beijing
	MarketHK Market = "HK"
	MarketUS Market = "US"
)

// MarketToEODHDSuffix maps markets to EODHD API exchange suffixes.
var MarketToEODHDSuffix = map[Market]string{
	MarketSH: ".SHG",
	MarketSZ: ".SHE",
	MarketBJ: ".BJ",
	MarketHK: ".HK",
	MarketUS: ".US",
}

// Ticker is a normalised security code with its market.
type Ticker struct {
	Market Market
	// Code is the bare security code, e.g. "600519", "00700", "AAPL"
	Code string
	// Raw is the original input
	Raw string
}

// ParseTicker normalises a user supplied security code.
// Supports formats:
//   - "600519", "sh600519", "SH.600519", "600519.SH" -> SH
//   - "000001", "300750", "sz000001" -> SZ
//   - "830799", "430047", "920118" -> BJ
//   - "hk00700", "00700.HK", "HK:00700" -> HK (code padded to 5 digits)
//   - "AAPL", "us.aapl" -> US
func ParseTicker(raw string) Ticker {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ticker{}
	}
	upper := strings.ToUpper(s)

	// Explicit market prefix or suffix
	for _, m := range []Market{MarketSH, MarketSZ, MarketBJ, MarketHK, MarketUS} {
		prefix := string(m)
		for _, sep := range []string{":", ".", ""} {
			if strings.HasPrefix(upper, prefix+sep) && len(upper) > len(prefix+sep) {
				rest := upper[len(prefix+sep):]
				// A glued prefix is only a market when digits follow ("SHOP", "USB" are codes)
				if sep == "" && !isDigits(rest) {
					continue
				}
				return newTicker(m, rest, s)
			}
		}
		if strings.HasSuffix(upper, "."+prefix) && len(upper) > len(prefix)+1 {
			return newTicker(m, upper[:len(upper)-len(prefix)-1], s)
		}
	}

	if isDigits(upper) {
		return newTicker(inferMarket(upper), upper, s)
	}

	return newTicker(MarketUS, upper, s)
}

func newTicker(m Market, code, raw string) Ticker {
	if m == MarketHK && isDigits(code) && len(code) < 5 {
		code = strings.Repeat("0", 5-len(code)) + code
	}
	return Ticker{Market: m, Code: code, Raw: raw}
}

// inferMarket resolves the market of a bare numeric code by its prefix
func inferMarket(code string) Market {
	if len(code) <= 5 {
		return MarketHK
	}
	switch {
	case strings.HasPrefix(code, "6"), strings.HasPrefix(code, "9") && !strings.HasPrefix(code, "92"):
		return MarketSH
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "2"), strings.HasPrefix(code, "3"):
		return MarketSZ
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"), strings.HasPrefix(code, "92"):
		return MarketBJ
	default:
		return MarketSH
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// String returns the market-qualified ticker, e.g. "SH:600519"
func (t Ticker) String() string {
	if t.Market == "" || t.Code == "" {
		return t.Code
	}
	return string(t.Market) + ":" + t.Code
}

// EODHDSymbol returns the EODHD API symbol.
// Example: "SH:600519" -> "600519.SHG"
func (t Ticker) EODHDSymbol() string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := MarketToEODHDSuffix[t.Market]
	if !ok {
		suffix = ".US"
	}
	code := t.Code
	if t.Market == MarketHK {
		// EODHD lists Hong Kong codes with four digits (0700.HK)
		for len(code) > 4 && code[0] == '0' {
			code = code[1:]
		}
	}
	return code + suffix
}

// IsAShare reports whether the ticker trades on a mainland exchange
func (t Ticker) IsAShare() bool {
	return t.Market == MarketSH || t.Market == MarketSZ || t.Market == MarketBJ
}

// ParseTickers parses a list of codes, dropping empty entries and duplicates.
func ParseTickers(codes []string) []Ticker {
	result := make([]Ticker, 0, len(codes))
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		parsed := ParseTicker(c)
		if parsed.Code == "" || seen[parsed.String()] {
			continue
		}
		seen[parsed.String()] = true
		result = append(result, parsed)
	}
	return result
}

// SplitCodeList splits a comma, semicolon or whitespace separated code list,
// the format used by the STOCK_LIST environment variable.
func SplitCodeList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '，' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

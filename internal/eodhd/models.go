package eodhd

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Number is a JSON number that EODHD sometimes sends as "NA" or null.
// Valid is false when no value was published.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts numbers, numeric strings, null and "NA"
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = Number{} // "NA", "" and friends
			return nil
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

// Ptr returns the value as a pointer, nil when not valid
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// EODData represents one end-of-day bar.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is the response from the EOD endpoint.
type EODResponse []EODData

// RealTimeQuote is the response from the real-time (delayed) endpoint.
type RealTimeQuote struct {
	Code          string `json:"code"`
	Timestamp     int64  `json:"timestamp"`
	Open          Number `json:"open"`
	High          Number `json:"high"`
	Low           Number `json:"low"`
	Close         Number `json:"close"`
	Volume        Number `json:"volume"`
	PreviousClose Number `json:"previousClose"`
	Change        Number `json:"change"`
	ChangePct     Number `json:"change_p"`
}

// FundamentalsResponse holds the subset of fundamentals used for quotes.
type FundamentalsResponse struct {
	General     *GeneralInfo `json:"General"`
	Highlights  *Highlights  `json:"Highlights"`
	Valuation   *Valuation   `json:"Valuation"`
	SharesStats *SharesStats `json:"SharesStats"`
}

// GeneralInfo contains company identity.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
}

// Highlights contains key financial highlights.
type Highlights struct {
	MarketCapitalization Number `json:"MarketCapitalization"`
	PERatio              Number `json:"PERatio"`
}

// Valuation contains valuation metrics.
type Valuation struct {
	TrailingPE   Number `json:"TrailingPE"`
	PriceBookMRQ Number `json:"PriceBookMRQ"`
}

// SharesStats contains share counts.
type SharesStats struct {
	SharesOutstanding Number `json:"SharesOutstanding"`
	SharesFloat       Number `json:"SharesFloat"`
}

package models

import "time"

// DailyBar is one trading day of OHLCV data
type DailyBar struct {
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Amount    float64   `json:"amount,omitempty"`
	ChangePct float64   `json:"pct_chg,omitempty"`
}

// RealtimeQuote is a point-in-time quote from a market data provider.
// Providers leave a field nil when they do not publish it.
type RealtimeQuote struct {
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Price        *float64 `json:"price"`
	ChangePct    *float64 `json:"change_pct"`
	VolumeRatio  *float64 `json:"volume_ratio"`
	TurnoverRate *float64 `json:"turnover_rate"`
	PERatio      *float64 `json:"pe_ratio"`
	PBRatio      *float64 `json:"pb_ratio"`
	TotalMV      *float64 `json:"total_mv"`
	CircMV       *float64 `json:"circ_mv"`
	Change60D    *float64 `json:"change_60d"`
	Source       string   `json:"source"`
}

// ToMap renders every quote field, keeping absent values as nil
func (q *RealtimeQuote) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"code":              q.Code,
		"name":              q.Name,
		"price":             floatOrNil(q.Price),
		"change_pct":        floatOrNil(q.ChangePct),
		"volume_ratio":      floatOrNil(q.VolumeRatio),
		"volume_ratio_desc": describeVolumeRatio(q.VolumeRatio),
		"turnover_rate":     floatOrNil(q.TurnoverRate),
		"pe_ratio":          floatOrNil(q.PERatio),
		"pb_ratio":          floatOrNil(q.PBRatio),
		"total_mv":          floatOrNil(q.TotalMV),
		"circ_mv":           floatOrNil(q.CircMV),
		"change_60d":        floatOrNil(q.Change60D),
		"source":            q.Source,
	}
}

// ChipDistribution summarises holder cost distribution for a security
type ChipDistribution struct {
	Code            string    `json:"code"`
	Date            time.Time `json:"date"`
	ProfitRatio     *float64  `json:"profit_ratio"` // fraction of holders in profit, 0 - 1
	AvgCost         *float64  `json:"avg_cost"`
	Concentration90 *float64  `json:"concentration_90"`
	Concentration70 *float64  `json:"concentration_70"`
	Source          string    `json:"source"`
}

// ToMap renders every chip field, keeping absent values as nil
func (c *ChipDistribution) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"code":             c.Code,
		"profit_ratio":     floatOrNil(c.ProfitRatio),
		"avg_cost":         floatOrNil(c.AvgCost),
		"concentration_90": floatOrNil(c.Concentration90),
		"concentration_70": floatOrNil(c.Concentration70),
		"chip_status":      c.Status(),
		"source":           c.Source,
	}
	if !c.Date.IsZero() {
		m["date"] = c.Date.Format("2006-01-02")
	} else {
		m["date"] = nil
	}
	return m
}

// Status gives a short health label from the 90% concentration band
func (c *ChipDistribution) Status() string {
	if c.Concentration90 == nil {
		return ""
	}
	switch conc := *c.Concentration90; {
	case conc < 0.08:
		return "筹码高度集中"
	case conc < 0.15:
		return "筹码较集中"
	case conc < 0.25:
		return "筹码分散度中等"
	default:
		return "筹码分散"
	}
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func describeVolumeRatio(v *float64) interface{} {
	if v == nil {
		return nil
	}
	switch r := *v; {
	case r < 0.5:
		return "极度萎缩"
	case r < 0.8:
		return "明显萎缩"
	case r < 1.2:
		return "正常"
	case r < 2:
		return "温和放量"
	case r < 3:
		return "明显放量"
	default:
		return "巨量"
	}
}

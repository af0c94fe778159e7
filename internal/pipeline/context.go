package pipeline

import (
	"math"

	"github.com/ternarybob/stockpulse/internal/models"
)

// BuildBaseContext seeds an analysis context with the code and the last
// two daily bars. Bars are expected oldest first.
func BuildBaseContext(code string, bars []models.DailyBar) models.AnalysisContext {
	ctx := models.AnalysisContext{"code": code}
	if len(bars) == 0 {
		return ctx
	}

	latest := bars[len(bars)-1]
	ctx["date"] = latest.Date.Format("2006-01-02")
	ctx["today"] = barMap(latest)
	if len(bars) > 1 {
		prev := bars[len(bars)-2]
		ctx["yesterday"] = barMap(prev)
		if prev.Volume > 0 {
			ctx["volume_change_ratio"] = round2(latest.Volume / prev.Volume)
		}
		if prev.Close > 0 {
			ctx["price_change_ratio"] = round2((latest.Close - prev.Close) / prev.Close * 100)
		}
	}
	return ctx
}

// EnhanceContext returns a copy of base with the realtime quote, chip
// distribution, trend analysis and stock name merged in. Each section is
// added only when its input is present; base is never modified.
func EnhanceContext(
	base models.AnalysisContext,
	quote *models.RealtimeQuote,
	chip *models.ChipDistribution,
	trend *models.TrendAnalysisResult,
	stockName string,
) models.AnalysisContext {
	enhanced := make(models.AnalysisContext, len(base)+4)
	for k, v := range base {
		enhanced[k] = v
	}

	if stockName != "" {
		enhanced[models.ContextStockName] = stockName
	}
	if quote != nil {
		enhanced[models.ContextRealtime] = quote.ToMap()
	}
	if chip != nil {
		enhanced[models.ContextChip] = chip.ToMap()
	}
	if trend != nil {
		enhanced[models.ContextTrendAnalysis] = trendMap(trend)
	}

	return enhanced
}

// trendMap always carries the MACD and RSI keys, nil when not computed
func trendMap(t *models.TrendAnalysisResult) map[string]interface{} {
	return map[string]interface{}{
		"trend_status":    t.TrendStatus.Value(),
		"ma_alignment":    t.MAAlignment,
		"trend_strength":  t.TrendStrength,
		"current_price":   t.CurrentPrice,
		"ma5":             t.MA5,
		"ma10":            t.MA10,
		"ma20":            t.MA20,
		"bias_ma5":        t.BiasMA5,
		"bias_ma10":       t.BiasMA10,
		"volume_status":   t.VolumeStatus.Value(),
		"volume_ratio_5d": t.VolumeRatio5D,
		"buy_signal":      t.BuySignal.Value(),
		"signal_score":    t.SignalScore,
		"signal_reasons":  t.SignalReasons,
		"risk_factors":    t.RiskFactors,
		"macd_dif":        floatOrNil(t.MACDDIF),
		"macd_dea":        floatOrNil(t.MACDDEA),
		"macd_bar":        floatOrNil(t.MACDBar),
		"macd_signal":     stringOrNil(t.MACDSignal),
		"rsi_6":           floatOrNil(t.RSI6),
		"rsi_12":          floatOrNil(t.RSI12),
		"rsi_24":          floatOrNil(t.RSI24),
		"rsi_signal":      stringOrNil(t.RSISignal),
	}
}

func barMap(b models.DailyBar) map[string]interface{} {
	return map[string]interface{}{
		"date":    b.Date.Format("2006-01-02"),
		"open":    b.Open,
		"high":    b.High,
		"low":     b.Low,
		"close":   b.Close,
		"volume":  b.Volume,
		"amount":  b.Amount,
		"pct_chg": b.ChangePct,
	}
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringOrNil(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// -----------------------------------------------------------------------
// Trend Analyzer - moving average alignment, volume, MACD and RSI from
// daily bars, scored into a buy signal
// -----------------------------------------------------------------------

package trend

import (
	"errors"
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/models"
)

// ErrInsufficientData is returned when there are fewer bars than MinBars
var ErrInsufficientData = errors.New("insufficient data for trend analysis")

const (
	// MinBars is the minimum history needed for MA20
	MinBars = 20

	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
	// MACD needs slow+signal-1 bars of lookback before the first value
	macdMinBars = macdSlow + macdSignal - 1

	rsiOverbought = 70.0
	rsiOversold   = 30.0

	heavyVolumeRatio  = 1.5
	shrinkVolumeRatio = 0.7
	biasThreshold     = 5.0 // % above MA5 considered chasing
)

// Analyzer computes TrendAnalysisResult values from daily bars
type Analyzer struct {
	logger arbor.ILogger
}

// NewAnalyzer creates a new trend analyzer
func NewAnalyzer(logger arbor.ILogger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze runs the full indicator set. Bars must be ordered oldest first.
// MACD and RSI fields stay nil when the history is too short for them.
func (a *Analyzer) Analyze(code string, bars []models.DailyBar) (*models.TrendAnalysisResult, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("%s has %d bars, need %d: %w", code, len(bars), MinBars, ErrInsufficientData)
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	result := &models.TrendAnalysisResult{
		Code:          code,
		SignalReasons: []string{},
		RiskFactors:   []string{},
	}

	ma5 := talib.Sma(closes, 5)
	ma10 := talib.Sma(closes, 10)
	ma20 := talib.Sma(closes, 20)
	last := len(closes) - 1

	result.CurrentPrice = closes[last]
	result.MA5 = round2(ma5[last])
	result.MA10 = round2(ma10[last])
	result.MA20 = round2(ma20[last])

	a.classifyTrend(result, ma5, ma10, ma20)
	a.computeBias(result)
	a.classifyVolume(result, closes, volumes)
	a.computeMACD(result, closes)
	a.computeRSI(result, closes)
	a.score(result)

	if a.logger != nil {
		a.logger.Debug().
			Str("code", code).
			Str("trend", result.TrendStatus.Value()).
			Str("signal", result.BuySignal.Value()).
			Int("score", result.SignalScore).
			Msg("Trend analysis complete")
	}

	return result, nil
}

func (a *Analyzer) classifyTrend(r *models.TrendAnalysisResult, ma5, ma10, ma20 []float64) {
	last := len(ma5) - 1
	m5, m10, m20 := ma5[last], ma10[last], ma20[last]

	// Spread of MA5 over MA20 now vs five bars ago tells widening from narrowing
	spread := pct(m5-m20, m20)
	prevSpread := spread
	if last-5 >= MinBars-1 {
		prevSpread = pct(ma5[last-5]-ma20[last-5], ma20[last-5])
	}

	switch {
	case m5 > m10 && m10 > m20:
		r.MAAlignment = "多头排列 MA5>MA10>MA20"
		if spread > prevSpread && spread > 5 {
			r.TrendStatus = models.TrendStrongBull
			r.TrendStrength = 90
		} else {
			r.TrendStatus = models.TrendBull
			r.TrendStrength = 75
		}
	case m5 > m10 && m10 <= m20:
		r.MAAlignment = "弱势多头 MA5>MA10 但 MA10<=MA20"
		r.TrendStatus = models.TrendWeakBull
		r.TrendStrength = 55
	case m5 < m10 && m10 < m20:
		r.MAAlignment = "空头排列 MA5<MA10<MA20"
		if spread < prevSpread && spread < -5 {
			r.TrendStatus = models.TrendStrongBear
			r.TrendStrength = 10
		} else {
			r.TrendStatus = models.TrendBear
			r.TrendStrength = 25
		}
	case m5 < m10 && m10 >= m20:
		r.MAAlignment = "弱势空头 MA5<MA10 但 MA10>=MA20"
		r.TrendStatus = models.TrendWeakBear
		r.TrendStrength = 40
	default:
		r.MAAlignment = "均线缠绕，趋势不明"
		r.TrendStatus = models.TrendConsolidation
		r.TrendStrength = 50
	}
}

func (a *Analyzer) computeBias(r *models.TrendAnalysisResult) {
	r.BiasMA5 = round2(pct(r.CurrentPrice-r.MA5, r.MA5))
	r.BiasMA10 = round2(pct(r.CurrentPrice-r.MA10, r.MA10))
}

// classifyVolume compares the last bar's volume with the five bars before it
func (a *Analyzer) classifyVolume(r *models.TrendAnalysisResult, closes, volumes []float64) {
	last := len(volumes) - 1
	var sum float64
	for _, v := range volumes[last-5 : last] {
		sum += v
	}
	avg := sum / 5
	if avg <= 0 {
		r.VolumeStatus = models.VolumeNormal
		return
	}

	ratio := volumes[last] / avg
	r.VolumeRatio5D = round2(ratio)
	up := closes[last] >= closes[last-1]

	switch {
	case ratio >= heavyVolumeRatio && up:
		r.VolumeStatus = models.VolumeHeavyUp
	case ratio >= heavyVolumeRatio:
		r.VolumeStatus = models.VolumeHeavyDown
	case ratio <= shrinkVolumeRatio && up:
		r.VolumeStatus = models.VolumeShrinkUp
	case ratio <= shrinkVolumeRatio:
		r.VolumeStatus = models.VolumeShrinkDown
	default:
		r.VolumeStatus = models.VolumeNormal
	}
}

func (a *Analyzer) computeMACD(r *models.TrendAnalysisResult, closes []float64) {
	if len(closes) <= macdMinBars {
		return
	}

	dif, dea, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	last := len(closes) - 1
	if !finite(dif[last]) || !finite(dea[last]) {
		return
	}

	r.MACDDIF = models.Float(round4(dif[last]))
	r.MACDDEA = models.Float(round4(dea[last]))
	// Chinese charting convention draws the bar at twice the histogram
	r.MACDBar = models.Float(round4(2 * hist[last]))

	prevAbove := dif[last-1] > dea[last-1]
	nowAbove := dif[last] > dea[last]

	var signal string
	switch {
	case nowAbove && !prevAbove && dif[last] > 0:
		signal = "零轴上金叉，强势买入信号"
	case nowAbove && !prevAbove:
		signal = "金叉，趋势向上"
	case !nowAbove && prevAbove && dif[last] < 0:
		signal = "零轴下死叉，强势卖出信号"
	case !nowAbove && prevAbove:
		signal = "死叉，趋势向下"
	case nowAbove && dif[last] > 0:
		signal = "多头，DIF在零轴上方"
	case nowAbove:
		signal = "DIF上穿DEA，零轴下方反弹"
	case dif[last] < 0:
		signal = "空头，DIF在零轴下方"
	default:
		signal = "DIF低于DEA，零轴上方回调"
	}
	r.MACDSignal = models.String(signal)
}

func (a *Analyzer) computeRSI(r *models.TrendAnalysisResult, closes []float64) {
	last := len(closes) - 1
	rsiAt := func(period int) *float64 {
		if len(closes) <= period {
			return nil
		}
		series := talib.Rsi(closes, period)
		if !finite(series[last]) {
			return nil
		}
		return models.Float(round2(series[last]))
	}

	r.RSI6 = rsiAt(6)
	r.RSI12 = rsiAt(12)
	r.RSI24 = rsiAt(24)

	if r.RSI6 == nil {
		return
	}
	var signal string
	switch rsi := *r.RSI6; {
	case rsi >= 80:
		signal = "RSI严重超买，注意回调风险"
	case rsi >= rsiOverbought:
		signal = "RSI超买"
	case rsi <= 20:
		signal = "RSI严重超卖，可能反弹"
	case rsi <= rsiOversold:
		signal = "RSI超卖"
	default:
		signal = "RSI中性"
	}
	r.RSISignal = models.String(signal)
}

// score folds the individual readings into a 0 - 100 signal score
func (a *Analyzer) score(r *models.TrendAnalysisResult) {
	score := 0

	switch r.TrendStatus {
	case models.TrendStrongBull:
		score += 30
		r.SignalReasons = append(r.SignalReasons, "✅ 强势多头排列，趋势向上")
	case models.TrendBull:
		score += 26
		r.SignalReasons = append(r.SignalReasons, "✅ 多头排列")
	case models.TrendWeakBull:
		score += 18
		r.SignalReasons = append(r.SignalReasons, "⚡ 弱势多头，关注MA10与MA20")
	case models.TrendConsolidation:
		score += 12
	case models.TrendWeakBear:
		score += 8
		r.RiskFactors = append(r.RiskFactors, "⚠️ 弱势空头，短线转弱")
	case models.TrendBear:
		score += 4
		r.RiskFactors = append(r.RiskFactors, "⚠️ 空头排列，不宜做多")
	case models.TrendStrongBear:
		r.RiskFactors = append(r.RiskFactors, "❌ 强势空头，回避")
	}

	switch bias := r.BiasMA5; {
	case bias > biasThreshold:
		r.RiskFactors = append(r.RiskFactors, fmt.Sprintf("⚠️ 乖离率 %.2f%% 过高，追高风险", bias))
	case bias >= 0 && bias <= 2:
		score += 20
		r.SignalReasons = append(r.SignalReasons, "✅ 价格贴近MA5，买点较好")
	case bias > 2:
		score += 12
	case bias >= -3:
		score += 16
		r.SignalReasons = append(r.SignalReasons, "✅ 回踩MA5附近")
	default:
		score += 6
	}

	switch r.VolumeStatus {
	case models.VolumeShrinkDown:
		score += 15
		r.SignalReasons = append(r.SignalReasons, "✅ 缩量回调，抛压减轻")
	case models.VolumeHeavyUp:
		score += 12
		r.SignalReasons = append(r.SignalReasons, "✅ 放量上涨，资金进场")
	case models.VolumeNormal:
		score += 10
	case models.VolumeShrinkUp:
		score += 6
	case models.VolumeHeavyDown:
		r.RiskFactors = append(r.RiskFactors, "⚠️ 放量下跌，注意出货风险")
	}

	if r.CurrentPrice >= r.MA10 && r.MA10 > 0 {
		score += 10
	}

	if r.MACDDIF != nil && r.MACDDEA != nil {
		switch {
		case *r.MACDDIF > *r.MACDDEA && *r.MACDDIF > 0:
			score += 15
			r.SignalReasons = append(r.SignalReasons, "✅ MACD多头")
		case *r.MACDDIF > *r.MACDDEA:
			score += 10
		case *r.MACDDIF > 0:
			score += 5
		default:
			r.RiskFactors = append(r.RiskFactors, "⚠️ MACD空头")
		}
	}

	if r.RSI6 != nil {
		switch rsi := *r.RSI6; {
		case rsi >= rsiOverbought:
			r.RiskFactors = append(r.RiskFactors, fmt.Sprintf("⚠️ RSI6=%.1f 超买", rsi))
		case rsi <= rsiOversold:
			score += 8
			r.SignalReasons = append(r.SignalReasons, "✅ RSI超卖，存在反弹需求")
		default:
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	r.SignalScore = score

	bullish := r.TrendStatus.IsBullish()
	switch {
	case score >= 75 && bullish:
		r.BuySignal = models.SignalStrongBuy
	case score >= 60 && bullish:
		r.BuySignal = models.SignalBuy
	case score >= 45:
		r.BuySignal = models.SignalHold
	case score >= 30:
		r.BuySignal = models.SignalWait
	case r.TrendStatus == models.TrendStrongBear:
		r.BuySignal = models.SignalStrongSell
	default:
		r.BuySignal = models.SignalSell
	}
}

func pct(diff, base float64) float64 {
	if base == 0 {
		return 0
	}
	return diff / base * 100
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

package analyzer

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/models"
)

// RuleProvider is the provider name recorded on rule-based results
const RuleProvider = "rule"

// Bias thresholds (% distance of price from MA5)
const (
	biasSafe    = 2.0
	biasWarning = 5.0
)

// RuleAnalyzer builds the decision dashboard directly from the enriched
// context using the trend computation. It never calls an external service.
type RuleAnalyzer struct {
	logger arbor.ILogger
	now    func() time.Time
}

// NewRuleAnalyzer creates a rule-based analyzer
func NewRuleAnalyzer(logger arbor.ILogger) *RuleAnalyzer {
	return &RuleAnalyzer{logger: logger, now: time.Now}
}

// Name returns the analyzer name
func (a *RuleAnalyzer) Name() string {
	return RuleProvider
}

// Analyze derives score, advice and dashboard from the context sections.
// Without a trend section the result is a neutral wait.
func (a *RuleAnalyzer) Analyze(ctx context.Context, actx models.AnalysisContext) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code := actx.Code()
	if code == "" {
		return nil, fmt.Errorf("analysis context has no code")
	}

	result := &models.AnalysisResult{
		Code:       code,
		Name:       actx.StockName(),
		Provider:   RuleProvider,
		Success:    true,
		AnalyzedAt: a.now(),
	}

	realtime, _ := actx.Section(models.ContextRealtime)
	chip, _ := actx.Section(models.ContextChip)
	if result.Name == "" {
		result.Name = stringField(realtime, "name")
	}

	trend, ok := actx.Section(models.ContextTrendAnalysis)
	if !ok {
		result.SentimentScore = 50
		result.TrendPrediction = "震荡"
		result.OperationAdvice = models.SignalWait.Value()
		result.Confidence = "低"
		result.AnalysisSummary = "历史数据不足，无法判断趋势"
		result.RiskWarning = "缺少趋势数据，建议观望"
		result.Dashboard = models.Dashboard{
			models.DashboardDataPerspective: map[string]interface{}{
				models.BlockVolumeAnalysis: volumeBlock(realtime, nil),
				models.BlockChipStructure:  chipBlock(chip),
			},
			models.DashboardCoreConclusion: map[string]interface{}{
				"one_sentence":     result.AnalysisSummary,
				"signal_type":      "持有观望",
				"time_sensitivity": "等待数据补全",
			},
		}
		a.logDone(result)
		return result, nil
	}

	score := clampScore(intField(trend, "signal_score"))
	status := models.TrendStatus(stringField(trend, "trend_status"))
	signal := models.BuySignal(stringField(trend, "buy_signal"))
	if signal == "" {
		signal = models.SignalWait
	}

	result.SentimentScore = score
	result.TrendPrediction = predictTrend(status)
	result.OperationAdvice = signal.Value()
	result.Confidence = confidence(score)
	result.AnalysisSummary = summary(status, signal, trend)
	result.RiskWarning = strings.Join(stringsField(trend, "risk_factors"), "；")

	dp := map[string]interface{}{
		models.BlockTrendStatus: map[string]interface{}{
			"ma_alignment": stringField(trend, "ma_alignment"),
			"is_bullish":   status.IsBullish(),
			"trend_score":  round2(floatField(trend, "trend_strength")),
		},
		models.BlockPricePosition: priceBlock(trend),
		models.BlockVolumeAnalysis: volumeBlock(realtime, trend),
		models.BlockChipStructure:  chipBlock(chip),
	}
	if macd := macdBlock(trend); macd != nil {
		dp[models.BlockMACD] = macd
	}
	if rsi := rsiBlock(trend); rsi != nil {
		dp[models.BlockRSI] = rsi
	}
	if text := interpretation(trend); text != "" {
		dp[models.BlockTechInterpretation] = text
	}

	result.Dashboard = models.Dashboard{
		models.DashboardDataPerspective: dp,
		models.DashboardCoreConclusion:  coreConclusion(signal, result.AnalysisSummary, trend),
		models.DashboardBattlePlan:      battlePlan(signal, trend),
	}

	a.logDone(result)
	return result, nil
}

func (a *RuleAnalyzer) logDone(r *models.AnalysisResult) {
	if a.logger == nil {
		return
	}
	a.logger.Debug().
		Str("code", r.Code).
		Int("score", r.SentimentScore).
		Str("advice", r.OperationAdvice).
		Msg("Rule analysis completed")
}

func predictTrend(status models.TrendStatus) string {
	switch {
	case status.IsBullish():
		return "看多"
	case status.IsBearish():
		return "看空"
	default:
		return "震荡"
	}
}

func confidence(score int) string {
	switch {
	case score >= 75 || score <= 25:
		return "高"
	case score >= 60 || score <= 40:
		return "中"
	default:
		return "低"
	}
}

func summary(status models.TrendStatus, signal models.BuySignal, trend map[string]interface{}) string {
	parts := []string{}
	if status != "" {
		parts = append(parts, string(status))
	}
	if reasons := stringsField(trend, "signal_reasons"); len(reasons) > 0 {
		parts = append(parts, reasons[0])
	}
	parts = append(parts, "建议"+signal.Value())
	return strings.Join(parts, "，")
}

func biasStatus(bias float64) string {
	switch abs := math.Abs(bias); {
	case abs <= biasSafe:
		return "安全"
	case abs <= biasWarning:
		return "警戒"
	default:
		return "危险"
	}
}

func priceBlock(trend map[string]interface{}) map[string]interface{} {
	price := floatField(trend, "current_price")
	ma5 := floatField(trend, "ma5")
	ma10 := floatField(trend, "ma10")
	ma20 := floatField(trend, "ma20")
	bias := floatField(trend, "bias_ma5")

	support, resistance := ma10, ma5
	if price >= ma5 {
		support, resistance = ma5, 0.0
	}
	block := map[string]interface{}{
		"current_price": round2(price),
		"ma5":           round2(ma5),
		"ma10":          round2(ma10),
		"ma20":          round2(ma20),
		"bias_ma5":      round2(bias),
		"bias_status":   biasStatus(bias),
		"support_level": round2(support),
	}
	if resistance > 0 {
		block["resistance_level"] = round2(resistance)
	}
	return block
}

// volumeBlock writes "N/A" for values the quote did not publish
func volumeBlock(realtime, trend map[string]interface{}) map[string]interface{} {
	block := map[string]interface{}{
		"volume_ratio":  numberOrNA(realtime, "volume_ratio"),
		"turnover_rate": numberOrNA(realtime, "turnover_rate"),
	}
	if s := stringField(trend, "volume_status"); s != "" {
		block["volume_status"] = s
		block["volume_meaning"] = volumeMeaning(models.VolumeStatus(s))
	}
	return block
}

func volumeMeaning(status models.VolumeStatus) string {
	switch status {
	case models.VolumeHeavyUp:
		return "放量上攻，资金积极"
	case models.VolumeHeavyDown:
		return "放量下跌，注意抛压"
	case models.VolumeShrinkUp:
		return "缩量上涨，跟风不足"
	case models.VolumeShrinkDown:
		return "缩量回调，抛压减轻"
	default:
		return "量能平稳"
	}
}

func chipBlock(chip map[string]interface{}) map[string]interface{} {
	block := map[string]interface{}{
		"profit_ratio":  numberOrNA(chip, "profit_ratio"),
		"avg_cost":      numberOrNA(chip, "avg_cost"),
		"concentration": numberOrNA(chip, "concentration_90"),
	}
	if s := stringField(chip, "chip_status"); s != "" {
		block["chip_health"] = s
	}
	return block
}

// macdBlock is nil unless all three MACD values were computed
func macdBlock(trend map[string]interface{}) map[string]interface{} {
	dif, ok1 := number(trend["macd_dif"])
	dea, ok2 := number(trend["macd_dea"])
	bar, ok3 := number(trend["macd_bar"])
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return map[string]interface{}{
		"dif":    round3(dif),
		"dea":    round3(dea),
		"bar":    round3(bar),
		"signal": stringField(trend, "macd_signal"),
	}
}

func rsiBlock(trend map[string]interface{}) map[string]interface{} {
	r6, ok1 := number(trend["rsi_6"])
	r12, ok2 := number(trend["rsi_12"])
	r24, ok3 := number(trend["rsi_24"])
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	return map[string]interface{}{
		"rsi_6":  round2(r6),
		"rsi_12": round2(r12),
		"rsi_24": round2(r24),
		"signal": stringField(trend, "rsi_signal"),
	}
}

func interpretation(trend map[string]interface{}) string {
	var parts []string
	if s := stringField(trend, "macd_signal"); s != "" {
		parts = append(parts, "MACD "+s)
	}
	if s := stringField(trend, "rsi_signal"); s != "" {
		parts = append(parts, "RSI "+s)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "；")
}

func coreConclusion(signal models.BuySignal, oneSentence string, trend map[string]interface{}) map[string]interface{} {
	signalType, noPosition, hasPosition := "持有观望", "暂不介入，等待趋势明朗", "持股观察，跌破 MA20 减仓"
	switch signal {
	case models.SignalStrongBuy, models.SignalBuy:
		signalType = "买入信号"
		noPosition = "可在回踩 MA5 附近分批建仓"
		hasPosition = "继续持有，沿 MA5 跟踪止盈"
		if floatField(trend, "bias_ma5") > biasWarning {
			noPosition = "乖离率过高，不追高，等待回踩"
		}
	case models.SignalSell, models.SignalStrongSell:
		signalType = "卖出信号"
		noPosition = "不参与"
		hasPosition = "逢反弹减仓或清仓"
	}
	return map[string]interface{}{
		"one_sentence":     oneSentence,
		"signal_type":      signalType,
		"time_sensitivity": "今日收盘前有效",
		"position_advice": map[string]interface{}{
			"no_position":  noPosition,
			"has_position": hasPosition,
		},
	}
}

func battlePlan(signal models.BuySignal, trend map[string]interface{}) map[string]interface{} {
	ma5 := floatField(trend, "ma5")
	ma10 := floatField(trend, "ma10")
	ma20 := floatField(trend, "ma20")
	price := floatField(trend, "current_price")
	bias := floatField(trend, "bias_ma5")

	position := "0-2成"
	switch signal {
	case models.SignalStrongBuy:
		position = "5-7成"
	case models.SignalBuy:
		position = "3-5成"
	case models.SignalHold:
		position = "维持现有仓位"
	case models.SignalSell, models.SignalStrongSell:
		position = "空仓"
	}

	checklist := []interface{}{
		check(models.TrendStatus(stringField(trend, "trend_status")).IsBullish(), "均线多头排列"),
		check(math.Abs(bias) <= biasWarning, fmt.Sprintf("乖离率 %.2f%% 不超过 5%%", bias)),
		check(price >= ma20, "股价站上 MA20"),
	}

	return map[string]interface{}{
		"sniper_points": map[string]interface{}{
			"ideal_buy":     formatPrice(ma5) + " (MA5)",
			"secondary_buy": formatPrice(ma10) + " (MA10)",
			"stop_loss":     formatPrice(ma20*0.97) + " (MA20 下方 3%)",
			"take_profit":   formatPrice(price*1.1) + " (+10%)",
		},
		"position_strategy": map[string]interface{}{
			"suggested_position": position,
			"entry_plan":         "回踩均线分批建仓",
			"risk_control":       "跌破止损位离场",
		},
		"action_checklist": checklist,
	}
}

func check(ok bool, item string) string {
	if ok {
		return "✅ " + item
	}
	return "❌ " + item
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func numberOrNA(m map[string]interface{}, key string) interface{} {
	if v, ok := number(m[key]); ok {
		return round2(v)
	}
	return "N/A"
}

// number accepts the numeric shapes found in contexts and decoded JSON
func number(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case *float64:
		if x != nil {
			return *x, true
		}
	}
	return 0, false
}

func floatField(m map[string]interface{}, key string) float64 {
	v, _ := number(m[key])
	return v
}

func intField(m map[string]interface{}, key string) int {
	return int(math.Round(floatField(m, key)))
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func stringsField(m map[string]interface{}, key string) []string {
	switch x := m[key].(type) {
	case []string:
		return x
	case []interface{}:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func formatPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package notification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ternarybob/stockpulse/internal/models"
)

// ErrMalformedDashboard is returned when a result or one of its dashboard
// blocks does not have the expected shape.
var ErrMalformedDashboard = models.ErrMalformedDashboard

// Report markers. Downstream parsers and tests key on these exact strings.
const (
	markerDataPerspective = "### 📊 数据透视"
	markerVolume          = "**量能**:"
	markerChip            = "**筹码**:"
	markerMACD            = "**MACD**:"
	markerRSI             = "**RSI**:"
	markerInterpretation  = "💡 **解读**:"
)

type fieldSpec struct {
	key    string
	label  string
	suffix string
}

var (
	trendFields = []fieldSpec{
		{key: "ma_alignment", label: ""},
		{key: "trend_score", label: "趋势强度"},
	}
	priceFields = []fieldSpec{
		{key: "current_price", label: "现价"},
		{key: "ma5", label: "MA5"},
		{key: "ma10", label: "MA10"},
		{key: "ma20", label: "MA20"},
		{key: "bias_ma5", label: "乖离率", suffix: "%"},
		{key: "bias_status", label: ""},
		{key: "support_level", label: "支撑"},
		{key: "resistance_level", label: "压力"},
	}
	volumeDetailFields = []fieldSpec{
		{key: "volume_ratio", label: "量比"},
		{key: "turnover_rate", label: "换手率", suffix: "%"},
		{key: "volume_status", label: ""},
		{key: "volume_meaning", label: ""},
	}
	chipDetailFields = []fieldSpec{
		{key: "profit_ratio", label: "获利比例"},
		{key: "avg_cost", label: "平均成本"},
		{key: "concentration", label: "集中度"},
		{key: "chip_health", label: ""},
	}
	macdFields = []fieldSpec{
		{key: "dif", label: "DIF"},
		{key: "dea", label: "DEA"},
		{key: "bar", label: "柱"},
		{key: "signal", label: ""},
	}
	rsiFields = []fieldSpec{
		{key: "rsi_6", label: "RSI6"},
		{key: "rsi_12", label: "RSI12"},
		{key: "rsi_24", label: "RSI24"},
		{key: "signal", label: ""},
	}
	sniperFields = []fieldSpec{
		{key: "ideal_buy", label: "理想买点"},
		{key: "secondary_buy", label: "次优买点"},
		{key: "stop_loss", label: "止损"},
		{key: "take_profit", label: "目标"},
	}
	strategyFields = []fieldSpec{
		{key: "suggested_position", label: "建议仓位"},
		{key: "entry_plan", label: "建仓"},
		{key: "risk_control", label: "风控"},
	}
)

// GenerateDashboardReport renders the daily decision dashboard for a batch of
// results, one section per result in input order. Missing dashboard pieces
// are skipped; pieces with the wrong shape fail with ErrMalformedDashboard.
func (s *Service) GenerateDashboardReport(results []*models.AnalysisResult) (string, error) {
	var sb strings.Builder

	buy, hold, sell := 0, 0, 0
	for i, r := range results {
		if r == nil {
			return "", fmt.Errorf("result %d is nil: %w", i, ErrMalformedDashboard)
		}
		switch r.Category() {
		case models.AdviceBuy:
			buy++
		case models.AdviceSell:
			sell++
		default:
			hold++
		}
	}

	fmt.Fprintf(&sb, "# 🎯 %s 决策仪表盘\n\n", s.now().Format("2006-01-02"))
	fmt.Fprintf(&sb, "> 共分析 **%d** 只股票 | 🟢买入:%d 🟡观望:%d 🔴卖出:%d\n\n", len(results), buy, hold, sell)

	if len(results) == 0 {
		return sb.String(), nil
	}

	sb.WriteString(renderOverview(results))
	sb.WriteString("\n\n")

	for _, r := range results {
		section, err := renderStockSection(r)
		if err != nil {
			return "", fmt.Errorf("stock %s: %w", r.Code, err)
		}
		sb.WriteString("---\n\n")
		sb.WriteString(section)
	}

	sb.WriteString("---\n\n*报告生成时间: ")
	sb.WriteString(s.now().Format("15:04"))
	sb.WriteString("*\n")

	return sb.String(), nil
}

// GenerateSingleStockReport renders one result without the batch header
func (s *Service) GenerateSingleStockReport(result *models.AnalysisResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil: %w", ErrMalformedDashboard)
	}
	section, err := renderStockSection(result)
	if err != nil {
		return "", fmt.Errorf("stock %s: %w", result.Code, err)
	}
	return section + "---\n\n*报告生成时间: " + s.now().Format("2006-01-02 15:04") + "*\n", nil
}

// GenerateHistoryReport renders stored results for one code as a table,
// in the order given (storage returns newest first).
func (s *Service) GenerateHistoryReport(code string, results []*models.AnalysisResult) string {
	title := code
	for _, r := range results {
		if r != nil && r.Name != "" {
			title = r.Name + " (" + code + ")"
			break
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# 📈 %s 历史分析\n\n", title)
	if len(results) == 0 {
		sb.WriteString("> 暂无分析记录\n")
		return sb.String()
	}

	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"时间", "评分", "趋势", "建议", "来源"})
	for _, r := range results {
		if r == nil {
			continue
		}
		tw.AppendRow(table.Row{
			r.AnalyzedAt.Format("2006-01-02 15:04"),
			r.SentimentScore,
			r.TrendPrediction,
			r.OperationAdvice,
			r.Provider,
		})
	}
	sb.WriteString(tw.RenderMarkdown())
	sb.WriteString("\n")
	return sb.String()
}

func renderOverview(results []*models.AnalysisResult) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"股票", "代码", "评分", "趋势", "建议"})
	for _, r := range results {
		tw.AppendRow(table.Row{
			r.Emoji() + " " + displayName(r),
			r.Code,
			r.SentimentScore,
			r.TrendPrediction,
			r.OperationAdvice,
		})
	}
	return tw.RenderMarkdown()
}

func renderStockSection(r *models.AnalysisResult) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s %s (%s)\n\n", r.Emoji(), displayName(r), r.Code)
	fmt.Fprintf(&sb, "**评分**: %d | **趋势**: %s | **建议**: %s\n\n", r.SentimentScore, r.TrendPrediction, r.OperationAdvice)

	if !r.Success && r.ErrorMessage != "" {
		fmt.Fprintf(&sb, "> ⚠️ %s\n\n", r.ErrorMessage)
	}

	if err := writeDataPerspective(&sb, r.Dashboard); err != nil {
		return "", err
	}
	if err := writeCoreConclusion(&sb, r.Dashboard); err != nil {
		return "", err
	}
	if err := writeBattlePlan(&sb, r.Dashboard); err != nil {
		return "", err
	}

	if r.RiskWarning != "" {
		fmt.Fprintf(&sb, "⚠️ **风险提示**: %s\n\n", r.RiskWarning)
	}

	return sb.String(), nil
}

func writeDataPerspective(sb *strings.Builder, dashboard models.Dashboard) error {
	dp, err := requireSection(dashboard, models.DashboardDataPerspective)
	if err != nil || dp == nil {
		return err
	}

	sb.WriteString(markerDataPerspective)
	sb.WriteString("\n\n")

	trend, err := block(dp, models.BlockTrendStatus)
	if err != nil {
		return err
	}
	if trend != nil {
		line := joinFields(trend, trendFields)
		if bullish, ok := trend["is_bullish"].(bool); ok {
			mark := "⚠️ 非多头"
			if bullish {
				mark = "✅ 多头"
			}
			line = joinParts(line, mark)
		}
		if line != "" {
			fmt.Fprintf(sb, "**趋势状态**: %s\n\n", line)
		}
	}

	price, err := block(dp, models.BlockPricePosition)
	if err != nil {
		return err
	}
	if price != nil {
		if line := joinFields(price, priceFields); line != "" {
			fmt.Fprintf(sb, "**价格位置**: %s\n\n", line)
		}
	}

	volume, err := block(dp, models.BlockVolumeAnalysis)
	if err != nil {
		return err
	}
	if HasMeaningfulVolume(volume) {
		fmt.Fprintf(sb, "%s %s\n\n", markerVolume, joinFields(volume, volumeDetailFields))
	}

	chip, err := block(dp, models.BlockChipStructure)
	if err != nil {
		return err
	}
	if HasMeaningfulChip(chip) {
		fmt.Fprintf(sb, "%s %s\n\n", markerChip, joinFields(chip, chipDetailFields))
	}

	macd, err := block(dp, models.BlockMACD)
	if err != nil {
		return err
	}
	if macd != nil {
		fmt.Fprintf(sb, "%s %s\n\n", markerMACD, joinFields(macd, macdFields))
	}

	rsi, err := block(dp, models.BlockRSI)
	if err != nil {
		return err
	}
	if rsi != nil {
		fmt.Fprintf(sb, "%s %s\n\n", markerRSI, joinFields(rsi, rsiFields))
	}

	if raw, ok := dp[models.BlockTechInterpretation]; ok && raw != nil {
		text, isString := raw.(string)
		if !isString {
			return fmt.Errorf("%s is %T, want string: %w", models.BlockTechInterpretation, raw, ErrMalformedDashboard)
		}
		if text = strings.TrimSpace(text); text != "" {
			fmt.Fprintf(sb, "%s %s\n\n", markerInterpretation, text)
		}
	}

	return nil
}

func writeCoreConclusion(sb *strings.Builder, dashboard models.Dashboard) error {
	core, err := requireSection(dashboard, models.DashboardCoreConclusion)
	if err != nil || len(core) == 0 {
		return err
	}

	var lines []string
	if s := textValue(core["one_sentence"]); s != "" {
		lines = append(lines, "**"+s+"**")
	}
	if s := textValue(core["time_sensitivity"]); s != "" {
		lines = append(lines, "⏰ 时效: "+s)
	}
	advice, err := block(core, "position_advice")
	if err != nil {
		return err
	}
	if s := textValue(advice["no_position"]); s != "" {
		lines = append(lines, "- 🆕 空仓者: "+s)
	}
	if s := textValue(advice["has_position"]); s != "" {
		lines = append(lines, "- 💼 持仓者: "+s)
	}
	if len(lines) == 0 {
		return nil
	}

	sb.WriteString("### 📌 核心结论\n\n")
	sb.WriteString(strings.Join(lines, "\n\n"))
	sb.WriteString("\n\n")
	return nil
}

func writeBattlePlan(sb *strings.Builder, dashboard models.Dashboard) error {
	plan, err := requireSection(dashboard, models.DashboardBattlePlan)
	if err != nil || len(plan) == 0 {
		return err
	}

	var lines []string
	sniper, err := block(plan, "sniper_points")
	if err != nil {
		return err
	}
	if line := joinFields(sniper, sniperFields); line != "" {
		lines = append(lines, "🎯 "+line)
	}
	strategy, err := block(plan, "position_strategy")
	if err != nil {
		return err
	}
	if line := joinFields(strategy, strategyFields); line != "" {
		lines = append(lines, "💰 "+line)
	}
	if checklist, ok := plan["action_checklist"].([]interface{}); ok {
		for _, item := range checklist {
			if s := textValue(item); s != "" {
				lines = append(lines, "- "+s)
			}
		}
	}
	if len(lines) == 0 {
		return nil
	}

	sb.WriteString("### 🎯 作战计划\n\n")
	sb.WriteString(strings.Join(lines, "\n\n"))
	sb.WriteString("\n\n")
	return nil
}

// requireSection returns a dashboard section, nil when absent
func requireSection(dashboard models.Dashboard, key string) (map[string]interface{}, error) {
	section, ok := dashboard.Section(key)
	if ok && section == nil {
		return nil, fmt.Errorf("%s is %T, want object: %w", key, dashboard[key], ErrMalformedDashboard)
	}
	return section, nil
}

// block returns a nested block, nil when absent or null
func block(parent map[string]interface{}, key string) (map[string]interface{}, error) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s is %T, want object: %w", key, raw, ErrMalformedDashboard)
	}
	return m, nil
}

func joinFields(m map[string]interface{}, specs []fieldSpec) string {
	var parts []string
	for _, spec := range specs {
		v, ok := m[spec.key]
		if !ok || !IsMeaningful(v) {
			continue
		}
		text := formatValue(v)
		if !strings.HasSuffix(text, spec.suffix) {
			text += spec.suffix
		}
		if spec.label != "" {
			text = spec.label + " " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " | ")
}

func joinParts(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

func textValue(v interface{}) string {
	if !IsMeaningful(v) {
		return ""
	}
	return formatValue(v)
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case *float64:
		return strconv.FormatFloat(*x, 'f', -1, 64)
	case *string:
		return *x
	default:
		return fmt.Sprint(v)
	}
}

func displayName(r *models.AnalysisResult) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Code
}

package analyzer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockpulse/internal/models"
	"github.com/ternarybob/stockpulse/internal/services/notification"
	"github.com/ternarybob/stockpulse/internal/templates"
)

type fakeCompleter struct {
	reply   string
	err     error
	system  string
	prompts []string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(_ context.Context, system, prompt string) (string, error) {
	f.system = system
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

const fencedReply = "分析如下：\n```json\n" + `{
  "sentiment_score": 72,
  "trend_prediction": "看多",
  "operation_advice": "买入",
  "confidence_level": "中",
  "analysis_summary": "多头排列，缩量回踩",
  "risk_warning": "注意大盘风险",
  "dashboard": {
    "data_perspective": {
      "volume_analysis": {"volume_ratio": 1.2, "turnover_rate": "N/A"},
      "tech_interpretation": "MACD 金叉"
    },
    "battle_plan": {"action_checklist": ["✅ 多头排列"]}
  }
}` + "\n```\n以上仅供参考。"

const malformedDashboardReply = `{"sentiment_score": 65, "trend_prediction": "看多", "operation_advice": "持有",
  "dashboard": {"data_perspective": {"macd": "金叉"}}}`

func testTemplate(t *testing.T) *templates.Template {
	tmpl, err := templates.GetTemplate(templates.StockAnalysis, "")
	require.NoError(t, err)
	return tmpl
}

func TestLLMAnalyzer_Analyze(t *testing.T) {
	fc := &fakeCompleter{reply: fencedReply}
	a := NewLLMAnalyzer(fc, testTemplate(t), 0, arbor.NewLogger())
	fixed := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	result, err := a.Analyze(context.Background(), bullishContext())
	require.NoError(t, err)

	assert.Equal(t, "600519", result.Code)
	assert.Equal(t, "贵州茅台", result.Name)
	assert.Equal(t, "fake", result.Provider)
	assert.Equal(t, 72, result.SentimentScore)
	assert.Equal(t, "买入", result.OperationAdvice)
	assert.Equal(t, fixed, result.AnalyzedAt)
	assert.True(t, result.Success)

	dp, ok := result.Dashboard.DataPerspective()
	require.True(t, ok)
	assert.Equal(t, "MACD 金叉", dp[models.BlockTechInterpretation])

	require.Len(t, fc.prompts, 1)
	assert.Contains(t, fc.prompts[0], "股票代码: 600519")
	assert.Contains(t, fc.prompts[0], `"trend_analysis"`)
	assert.Contains(t, fc.system, "严进策略")
}

func TestLLMAnalyzer_Errors(t *testing.T) {
	tmpl := testTemplate(t)

	a := NewLLMAnalyzer(&fakeCompleter{err: errors.New("boom")}, tmpl, 0, arbor.NewLogger())
	_, err := a.Analyze(context.Background(), bullishContext())
	assert.ErrorContains(t, err, "boom")

	a = NewLLMAnalyzer(&fakeCompleter{reply: "无法分析"}, tmpl, 0, arbor.NewLogger())
	_, err = a.Analyze(context.Background(), bullishContext())
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = a.Analyze(context.Background(), models.AnalysisContext{})
	assert.Error(t, err)
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
		score   int
	}{
		{name: "bare object", text: `{"sentiment_score": 40, "trend_prediction": "震荡", "operation_advice": "观望"}`, score: 40},
		{name: "fenced", text: fencedReply, score: 72},
		{name: "prose around", text: `结论 {"sentiment_score": 80.6, "trend_prediction": "看多", "operation_advice": "加仓"} 完`, score: 81},
		{name: "no json", text: "nothing here", wantErr: true},
		{name: "invalid json", text: `{"sentiment_score": }`, wantErr: true},
		{name: "missing advice", text: `{"sentiment_score": 40, "trend_prediction": "震荡"}`, wantErr: true},
		{name: "missing score", text: `{"trend_prediction": "震荡", "operation_advice": "观望"}`, wantErr: true},
		{name: "score out of range", text: `{"sentiment_score": 140, "trend_prediction": "震荡", "operation_advice": "观望"}`, wantErr: true},
		{name: "macd block not an object", text: malformedDashboardReply, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseResponse(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, result.SentimentScore)
		})
	}
}

func TestFallbackAnalyzer(t *testing.T) {
	logger := arbor.NewLogger()
	tmpl := testTemplate(t)

	failing := NewLLMAnalyzer(&fakeCompleter{err: errors.New("quota")}, tmpl, 0, logger)
	f := NewFallbackAnalyzer(failing, NewRuleAnalyzer(logger), logger)
	assert.Equal(t, "fake", f.Name())

	result, err := f.Analyze(context.Background(), bullishContext())
	require.NoError(t, err)
	assert.Equal(t, RuleProvider, result.Provider)
	assert.Contains(t, result.ErrorMessage, "quota")

	working := NewLLMAnalyzer(&fakeCompleter{reply: fencedReply}, tmpl, 0, logger)
	result, err = NewFallbackAnalyzer(working, NewRuleAnalyzer(logger), logger).Analyze(context.Background(), bullishContext())
	require.NoError(t, err)
	assert.Equal(t, "fake", result.Provider)
	assert.Empty(t, result.ErrorMessage)
}

func TestFallbackAnalyzer_MalformedDashboard(t *testing.T) {
	logger := arbor.NewLogger()
	tmpl := testTemplate(t)

	bad := NewLLMAnalyzer(&fakeCompleter{reply: malformedDashboardReply}, tmpl, 0, logger)
	_, err := bad.Analyze(context.Background(), bullishContext())
	require.ErrorIs(t, err, models.ErrMalformedDashboard)

	fallback, err := NewFallbackAnalyzer(bad, NewRuleAnalyzer(logger), logger).Analyze(context.Background(), bullishContext())
	require.NoError(t, err)
	assert.Equal(t, RuleProvider, fallback.Provider)
	assert.Contains(t, fallback.ErrorMessage, "malformed dashboard")

	good, err := NewLLMAnalyzer(&fakeCompleter{reply: fencedReply}, tmpl, 0, logger).Analyze(context.Background(), bullishContext())
	require.NoError(t, err)

	report, err := notification.NewService(logger).GenerateDashboardReport([]*models.AnalysisResult{fallback, good})
	require.NoError(t, err)
	assert.Contains(t, report, "**MACD**:")
	assert.Contains(t, report, "💡 **解读**: MACD 金叉")
	assert.Equal(t, 2, strings.Count(report, "(600519)"))
}

func TestGeminiRetryHelpers(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 12.5s., Status: RESOURCE_EXHAUSTED")
	assert.True(t, IsRateLimitError(err))
	assert.False(t, IsRateLimitError(errors.New("invalid argument")))
	assert.False(t, IsRateLimitError(nil))

	assert.Equal(t, 12500*time.Millisecond, ExtractRetryDelay(err))
	assert.Zero(t, ExtractRetryDelay(errors.New("no hint")))

	cfg := NewDefaultRetryConfig()
	assert.Equal(t, DefaultInitialBackoff, cfg.CalculateBackoff(0, 0))
	assert.Equal(t, 45*time.Second, cfg.CalculateBackoff(1, 0))
	assert.Equal(t, DefaultMaxBackoff, cfg.CalculateBackoff(5, 0))
	assert.Equal(t, 14500*time.Millisecond, cfg.CalculateBackoff(0, 12500*time.Millisecond))
}

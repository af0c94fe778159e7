package models

import (
	"encoding/gob"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformedDashboard is returned when a result or one of its dashboard
// blocks does not have the expected shape.
var ErrMalformedDashboard = errors.New("malformed dashboard")

func init() {
	// Dashboard payloads are decoded from JSON into interface{} trees;
	// badgerhold encodes records with gob, which needs the concrete types.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
}

// Dashboard section keys
const (
	DashboardDataPerspective = "data_perspective"
	DashboardBattlePlan      = "battle_plan"
	DashboardCoreConclusion  = "core_conclusion"
)

// Data perspective block keys
const (
	BlockTrendStatus        = "trend_status"
	BlockPricePosition      = "price_position"
	BlockVolumeAnalysis     = "volume_analysis"
	BlockChipStructure      = "chip_structure"
	BlockMACD               = "macd"
	BlockRSI                = "rsi"
	BlockTechInterpretation = "tech_interpretation"
)

// Dashboard is the structured decision payload attached to a result.
// Values come from analyzers (often decoded JSON), so blocks are generic maps.
type Dashboard map[string]interface{}

// DataPerspective returns the data_perspective section and whether it is present.
// A present section that is not a map is returned with ok=true and a nil map;
// callers that need to tell the two apart use Section.
func (d Dashboard) DataPerspective() (map[string]interface{}, bool) {
	return d.Section(DashboardDataPerspective)
}

// Section returns a named section as a map. ok reports key presence.
func (d Dashboard) Section(key string) (map[string]interface{}, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d[key]
	if !ok || v == nil {
		return nil, false
	}
	m, _ := v.(map[string]interface{})
	return m, true
}

// nested object blocks per section; everything else in a section is a leaf
var dashboardBlocks = map[string][]string{
	DashboardDataPerspective: {
		BlockTrendStatus, BlockPricePosition, BlockVolumeAnalysis,
		BlockChipStructure, BlockMACD, BlockRSI,
	},
	DashboardCoreConclusion: {"position_advice"},
	DashboardBattlePlan:     {"sniper_points", "position_strategy"},
}

// Validate checks the dashboard shape the report renderer relies on:
// sections and their nested blocks are absent, null or objects, and
// tech_interpretation is absent, null or a string.
func (d Dashboard) Validate() error {
	for _, key := range []string{DashboardDataPerspective, DashboardCoreConclusion, DashboardBattlePlan} {
		raw, ok := d[key]
		if !ok || raw == nil {
			continue
		}
		section, isMap := raw.(map[string]interface{})
		if !isMap {
			return fmt.Errorf("%s is %T, want object: %w", key, raw, ErrMalformedDashboard)
		}
		for _, name := range dashboardBlocks[key] {
			if v := section[name]; v != nil {
				if _, isMap := v.(map[string]interface{}); !isMap {
					return fmt.Errorf("%s.%s is %T, want object: %w", key, name, v, ErrMalformedDashboard)
				}
			}
		}
		if key == DashboardDataPerspective {
			if v := section[BlockTechInterpretation]; v != nil {
				if _, isString := v.(string); !isString {
					return fmt.Errorf("%s.%s is %T, want string: %w", key, BlockTechInterpretation, v, ErrMalformedDashboard)
				}
			}
		}
	}
	return nil
}

// AnalysisResult is one analysis outcome for a single security
type AnalysisResult struct {
	ID              string    `json:"id"`
	RunID           string    `json:"run_id" badgerhold:"index"`
	Code            string    `json:"code" validate:"required" badgerhold:"index"`
	Name            string    `json:"name"`
	SentimentScore  int       `json:"sentiment_score" validate:"gte=0,lte=100"`
	TrendPrediction string    `json:"trend_prediction" validate:"required"`
	OperationAdvice string    `json:"operation_advice" validate:"required"`
	Confidence      string    `json:"confidence_level"`
	Dashboard       Dashboard `json:"dashboard"`
	AnalysisSummary string    `json:"analysis_summary"`
	RiskWarning     string    `json:"risk_warning"`
	Provider        string    `json:"provider"`
	Success         bool      `json:"success"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// AdviceCategory groups free-text operation advice for report counters
type AdviceCategory string

const (
	AdviceBuy  AdviceCategory = "buy"
	AdviceHold AdviceCategory = "hold"
	AdviceSell AdviceCategory = "sell"
)

// Category classifies the operation advice into buy, hold or sell
func (r *AnalysisResult) Category() AdviceCategory {
	advice := r.OperationAdvice
	switch {
	case strings.Contains(advice, "卖"), strings.Contains(advice, "减仓"), strings.Contains(advice, "清仓"):
		return AdviceSell
	case strings.Contains(advice, "买"), strings.Contains(advice, "加仓"), strings.Contains(advice, "建仓"):
		return AdviceBuy
	default:
		return AdviceHold
	}
}

// Emoji returns the marker used in report headings for this result
func (r *AnalysisResult) Emoji() string {
	switch r.Category() {
	case AdviceBuy:
		return "🟢"
	case AdviceSell:
		return "🔴"
	default:
		return "🟡"
	}
}

// AnalysisContext is the merged mapping handed to analyzers
type AnalysisContext map[string]interface{}

// Context section keys written by the enrichment stage
const (
	ContextRealtime      = "realtime"
	ContextChip          = "chip"
	ContextTrendAnalysis = "trend_analysis"
	ContextStockName     = "stock_name"
)

// Code returns the security code carried in the context, if any
func (c AnalysisContext) Code() string {
	s, _ := c["code"].(string)
	return s
}

// StockName returns the display name carried in the context, if any
func (c AnalysisContext) StockName() string {
	s, _ := c[ContextStockName].(string)
	return s
}

// Section returns a nested map section of the context
func (c AnalysisContext) Section(key string) (map[string]interface{}, bool) {
	m, ok := c[key].(map[string]interface{})
	return m, ok
}

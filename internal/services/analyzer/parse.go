package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/stockpulse/internal/models"
)

// ErrNoJSON is returned when a model reply contains no JSON object
var ErrNoJSON = errors.New("no JSON object in response")

var validate = validator.New()

// llmReply mirrors the JSON shape requested by the prompt template
type llmReply struct {
	SentimentScore  *float64               `json:"sentiment_score" validate:"required,gte=0,lte=100"`
	TrendPrediction string                 `json:"trend_prediction" validate:"required"`
	OperationAdvice string                 `json:"operation_advice" validate:"required"`
	Confidence      string                 `json:"confidence_level"`
	AnalysisSummary string                 `json:"analysis_summary"`
	RiskWarning     string                 `json:"risk_warning"`
	Dashboard       map[string]interface{} `json:"dashboard"`
}

// ParseResponse extracts the JSON object from a model reply and converts it
// to a result. Markdown code fences and surrounding prose are ignored.
func ParseResponse(text string) (*models.AnalysisResult, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var reply llmReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("failed to decode analysis JSON: %w", err)
	}
	if err := validate.Struct(reply); err != nil {
		return nil, fmt.Errorf("analysis JSON failed validation: %w", err)
	}
	dashboard := models.Dashboard(reply.Dashboard)
	if err := dashboard.Validate(); err != nil {
		return nil, fmt.Errorf("analysis JSON failed validation: %w", err)
	}

	return &models.AnalysisResult{
		SentimentScore:  int(*reply.SentimentScore + 0.5),
		TrendPrediction: strings.TrimSpace(reply.TrendPrediction),
		OperationAdvice: strings.TrimSpace(reply.OperationAdvice),
		Confidence:      reply.Confidence,
		AnalysisSummary: reply.AnalysisSummary,
		RiskWarning:     reply.RiskWarning,
		Dashboard:       dashboard,
		Success:         true,
	}, nil
}

func extractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			s = rest[:j]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	return s[start : end+1], nil
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDashboard_Validate(t *testing.T) {
	tests := []struct {
		name      string
		dashboard Dashboard
		wantErr   bool
	}{
		{"nil dashboard", nil, false},
		{"empty", Dashboard{}, false},
		{"null sections", Dashboard{DashboardDataPerspective: nil, DashboardBattlePlan: nil}, false},
		{"well formed", Dashboard{
			DashboardDataPerspective: map[string]interface{}{
				BlockMACD:               map[string]interface{}{"dif": 0.12},
				BlockRSI:                nil,
				BlockTechInterpretation: "MACD 金叉",
			},
			DashboardCoreConclusion: map[string]interface{}{"one_sentence": "持有"},
			DashboardBattlePlan:     map[string]interface{}{"action_checklist": []interface{}{"✅ 多头排列"}},
		}, false},
		{"section is string", Dashboard{DashboardDataPerspective: "看多"}, true},
		{"macd is string", Dashboard{DashboardDataPerspective: map[string]interface{}{BlockMACD: "金叉"}}, true},
		{"volume is list", Dashboard{DashboardDataPerspective: map[string]interface{}{BlockVolumeAnalysis: []interface{}{1.2}}}, true},
		{"interpretation is object", Dashboard{DashboardDataPerspective: map[string]interface{}{BlockTechInterpretation: map[string]interface{}{}}}, true},
		{"position advice is string", Dashboard{DashboardCoreConclusion: map[string]interface{}{"position_advice": "空仓"}}, true},
		{"sniper points is number", Dashboard{DashboardBattlePlan: map[string]interface{}{"sniper_points": 1700.0}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dashboard.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedDashboard)
				return
			}
			assert.NoError(t, err)
		})
	}
}

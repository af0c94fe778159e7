package models

// TrendStatus classifies the moving-average trend of a security.
// The underlying value is the display label written into analysis contexts.
type TrendStatus string

const (
	TrendStrongBull    TrendStatus = "强势多头"
	TrendBull          TrendStatus = "多头排列"
	TrendWeakBull      TrendStatus = "弱势多头"
	TrendConsolidation TrendStatus = "盘整"
	TrendWeakBear      TrendStatus = "弱势空头"
	TrendBear          TrendStatus = "空头排列"
	TrendStrongBear    TrendStatus = "强势空头"
)

// Value returns the underlying scalar of the status
func (s TrendStatus) Value() string {
	return string(s)
}

// IsBullish reports whether the status is one of the bullish alignments
func (s TrendStatus) IsBullish() bool {
	return s == TrendStrongBull || s == TrendBull || s == TrendWeakBull
}

// IsBearish reports whether the status is one of the bearish alignments
func (s TrendStatus) IsBearish() bool {
	return s == TrendStrongBear || s == TrendBear || s == TrendWeakBear
}

// VolumeStatus classifies today's volume against the recent average
type VolumeStatus string

const (
	VolumeHeavyUp    VolumeStatus = "放量上涨"
	VolumeHeavyDown  VolumeStatus = "放量下跌"
	VolumeShrinkUp   VolumeStatus = "缩量上涨"
	VolumeShrinkDown VolumeStatus = "缩量回调"
	VolumeNormal     VolumeStatus = "量能正常"
)

// Value returns the underlying scalar of the status
func (s VolumeStatus) Value() string {
	return string(s)
}

// BuySignal is the recommendation derived from the trend computation
type BuySignal string

const (
	SignalStrongBuy  BuySignal = "强烈买入"
	SignalBuy        BuySignal = "买入"
	SignalHold       BuySignal = "持有"
	SignalWait       BuySignal = "观望"
	SignalSell       BuySignal = "卖出"
	SignalStrongSell BuySignal = "强烈卖出"
)

// Value returns the underlying scalar of the signal
func (s BuySignal) Value() string {
	return string(s)
}

// TrendAnalysisResult is the output of one trend computation for a security.
// Optional technical fields are nil when the computation could not produce them.
type TrendAnalysisResult struct {
	Code          string       `json:"code"`
	TrendStatus   TrendStatus  `json:"trend_status"`
	MAAlignment   string       `json:"ma_alignment"`
	TrendStrength float64      `json:"trend_strength"` // 0 - 100
	VolumeStatus  VolumeStatus `json:"volume_status"`
	BuySignal     BuySignal    `json:"buy_signal"`

	CurrentPrice  float64 `json:"current_price"`
	MA5           float64 `json:"ma5"`
	MA10          float64 `json:"ma10"`
	MA20          float64 `json:"ma20"`
	BiasMA5       float64 `json:"bias_ma5"`  // % distance of price from MA5
	BiasMA10      float64 `json:"bias_ma10"` // % distance of price from MA10
	VolumeRatio5D float64 `json:"volume_ratio_5d"`

	MACDDIF    *float64 `json:"macd_dif,omitempty"`
	MACDDEA    *float64 `json:"macd_dea,omitempty"`
	MACDBar    *float64 `json:"macd_bar,omitempty"`
	MACDSignal *string  `json:"macd_signal,omitempty"`
	RSI6       *float64 `json:"rsi_6,omitempty"`
	RSI12      *float64 `json:"rsi_12,omitempty"`
	RSI24      *float64 `json:"rsi_24,omitempty"`
	RSISignal  *string  `json:"rsi_signal,omitempty"`

	SignalScore   int      `json:"signal_score"`
	SignalReasons []string `json:"signal_reasons"`
	RiskFactors   []string `json:"risk_factors"`
}

// Float returns a pointer to v, for populating optional indicator fields
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v, for populating optional indicator fields
func String(v string) *string {
	return &v
}

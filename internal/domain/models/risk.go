package models

import "time"

// ScoreRange is the closed (or open, for tanh) interval a strategy's score lives in.
type ScoreRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Open bool    `json:"open"`
}

// Contains reports whether v lies in the range, honoring open bounds.
func (r ScoreRange) Contains(v float64) bool {
	if r.Open {
		return v > r.Min && v < r.Max
	}
	return v >= r.Min && v <= r.Max
}

// RiskScore is the normalized output of a risk strategy.
type RiskScore struct {
	Strategy   string             `json:"strategy"`
	Value      float64            `json:"value"`
	Range      ScoreRange         `json:"range"`
	Components map[string]float64 `json:"components,omitempty"`
	// Neutral is set when a degenerate input (near-zero denominator,
	// non-finite intermediate) forced the strategy's neutral score.
	Neutral bool   `json:"neutral"`
	Label   string `json:"label"`
}

// Recommendation is the suggested purchase for one base amount.
type Recommendation struct {
	Strategy   string  `json:"strategy"`
	BaseUSD    float64 `json:"base_usd"`
	Multiplier float64 `json:"multiplier"`
	USD        float64 `json:"usd"`
	BTC        float64 `json:"btc"`
	SpotPrice  float64 `json:"spot_price"`
	USDDisplay string  `json:"usd_display"`
	BTCDisplay string  `json:"btc_display"`
}

// Assessment bundles everything a display surface renders after ingestion.
type Assessment struct {
	Symbol  string    `json:"symbol"`
	Signals Signals   `json:"signals"`
	Score   RiskScore `json:"score"`
	AsOf    time.Time `json:"as_of"`
}

// RiskSnapshot is the event emitted once per ingestion cycle.
type RiskSnapshot struct {
	Symbol       string    `json:"symbol"`
	Strategy     string    `json:"strategy"`
	Score        float64   `json:"score"`
	Neutral      bool      `json:"neutral"`
	SpotPrice    float64   `json:"spot_price"`
	SMA          float64   `json:"sma"`
	MaxDeviation float64   `json:"max_deviation"`
	Timestamp    time.Time `json:"timestamp"`
}

// StrategyRequirements tells the ingestion layer what a strategy needs.
type StrategyRequirements struct {
	LookbackDays     int   `json:"lookback_days"`
	PctChangeWindows []int `json:"pct_change_windows,omitempty"`
}

// StrategyInfo describes a strategy for display surfaces.
type StrategyInfo struct {
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	SignConvention string             `json:"sign_convention"`
	Multiplier     string             `json:"multiplier"`
	Range          ScoreRange         `json:"range"`
	Params         map[string]float64 `json:"params"`
	Default        bool               `json:"default"`
}

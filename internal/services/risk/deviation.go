package risk

import (
	"fmt"

	"BitDCA/internal/domain/models"
	domsvc "BitDCA/internal/domain/service"
)

// DeviationVariant picks the mapping from the clamped deviation ratio to [0,1].
type DeviationVariant string

const (
	DeviationSymmetric  DeviationVariant = "symmetric"
	DeviationAsymmetric DeviationVariant = "asymmetric"
)

type DeviationConfig struct {
	Window        int
	Variant       DeviationVariant
	Mode          MultiplierMode
	MinMultiplier float64
	MaxMultiplier float64
}

// DeviationRatio scores the spot price against the SMA, scaled by the
// largest absolute deviation inside the SMA window. Higher means buy less.
type DeviationRatio struct {
	cfg DeviationConfig
}

func NewDeviationRatio(cfg DeviationConfig) (*DeviationRatio, error) {
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("deviation window must be positive, got %d", cfg.Window)
	}
	if cfg.Variant != DeviationSymmetric && cfg.Variant != DeviationAsymmetric {
		return nil, fmt.Errorf("unknown deviation variant %q", cfg.Variant)
	}
	if cfg.Mode != MultiplierLinear && cfg.Mode != MultiplierDirect {
		return nil, fmt.Errorf("unknown multiplier mode %q", cfg.Mode)
	}
	if cfg.Mode == MultiplierLinear && (cfg.MinMultiplier < 0 || cfg.MaxMultiplier < cfg.MinMultiplier) {
		return nil, fmt.Errorf("invalid multiplier bounds [%v, %v]", cfg.MinMultiplier, cfg.MaxMultiplier)
	}
	return &DeviationRatio{cfg: cfg}, nil
}

func (d *DeviationRatio) Name() string { return "deviation" }

func (d *DeviationRatio) Requirements() models.StrategyRequirements {
	return models.StrategyRequirements{LookbackDays: d.cfg.Window}
}

func (d *DeviationRatio) Score(sig models.Signals) (models.RiskScore, error) {
	out := models.RiskScore{
		Strategy: d.Name(),
		Range:    models.ScoreRange{Min: 0, Max: 1},
		Components: map[string]float64{
			"sma":           sig.SMA,
			"max_deviation": sig.MaxDeviation,
		},
	}

	if !finite(sig.MaxDeviation, sig.SpotPrice, sig.SMA) || sig.MaxDeviation < Epsilon {
		return d.neutral(out), nil
	}
	raw := (sig.SpotPrice - sig.SMA) / sig.MaxDeviation
	if !finite(raw) {
		return d.neutral(out), nil
	}
	out.Components["raw_deviation"] = raw

	switch d.cfg.Variant {
	case DeviationAsymmetric:
		out.Value = clamp((raw+1)/2, 0, 1)
	default:
		out.Value = 0.5 + 0.5*clamp(raw, -1, 1)
	}
	out.Label = UnitLabel(out.Value)
	return out, nil
}

func (d *DeviationRatio) neutral(out models.RiskScore) models.RiskScore {
	out.Value = NeutralUnit
	out.Neutral = true
	out.Label = UnitLabel(out.Value)
	return out
}

func (d *DeviationRatio) Multiplier(score models.RiskScore) float64 {
	return unitMultiplier(d.cfg.Mode, score.Value, d.cfg.MinMultiplier, d.cfg.MaxMultiplier)
}

func (d *DeviationRatio) Info() models.StrategyInfo {
	mult := "1 - score"
	if d.cfg.Mode == MultiplierLinear {
		mult = fmt.Sprintf("%g + (1 - score) * (%g - %g)", d.cfg.MinMultiplier, d.cfg.MaxMultiplier, d.cfg.MinMultiplier)
	}
	return models.StrategyInfo{
		Name:           d.Name(),
		Description:    fmt.Sprintf("%d-day SMA deviation ratio (%s)", d.cfg.Window, d.cfg.Variant),
		SignConvention: "higher score means buy less",
		Multiplier:     mult,
		Range:          models.ScoreRange{Min: 0, Max: 1},
		Params: map[string]float64{
			"window":         float64(d.cfg.Window),
			"min_multiplier": d.cfg.MinMultiplier,
			"max_multiplier": d.cfg.MaxMultiplier,
		},
	}
}

var _ domsvc.RiskStrategy = (*DeviationRatio)(nil)

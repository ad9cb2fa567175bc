package risk

import (
	"fmt"
	"math"

	"BitDCA/internal/domain/models"
	domsvc "BitDCA/internal/domain/service"
)

type BlendConfig struct {
	CycleLength     float64
	PhaseShift      float64
	K               float64
	Window          int
	CycleWeight     float64
	LiquidityWeight float64
	Mode            MultiplierMode
	MinMultiplier   float64
	MaxMultiplier   float64
}

// CycleLiquidityBlend combines a sinusoidal halving-cycle risk with a
// logistic liquidity proxy. Higher means buy less.
type CycleLiquidityBlend struct {
	cfg BlendConfig
}

func NewCycleLiquidityBlend(cfg BlendConfig) (*CycleLiquidityBlend, error) {
	if !(cfg.CycleLength > 0) {
		return nil, fmt.Errorf("cycle length must be positive, got %v", cfg.CycleLength)
	}
	if !(cfg.K > 0) || math.IsInf(cfg.K, 0) {
		return nil, fmt.Errorf("liquidity divisor must be positive and finite, got %v", cfg.K)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("liquidity window must be positive, got %d", cfg.Window)
	}
	if !finite(cfg.PhaseShift, cfg.CycleWeight, cfg.LiquidityWeight) {
		return nil, fmt.Errorf("blend weights and phase shift must be finite")
	}
	if cfg.Mode != MultiplierLinear && cfg.Mode != MultiplierDirect {
		return nil, fmt.Errorf("unknown multiplier mode %q", cfg.Mode)
	}
	return &CycleLiquidityBlend{cfg: cfg}, nil
}

func (b *CycleLiquidityBlend) Name() string { return "blend" }

func (b *CycleLiquidityBlend) Requirements() models.StrategyRequirements {
	return models.StrategyRequirements{LookbackDays: b.cfg.Window, PctChangeWindows: []int{b.cfg.Window}}
}

// CycleRisk is 0.5 + 0.5*sin(2π(days+phase)/length).
func (b *CycleLiquidityBlend) CycleRisk(days float64) float64 {
	return 0.5 + 0.5*math.Sin(2*math.Pi*(days+b.cfg.PhaseShift)/b.cfg.CycleLength)
}

// LiquidityRisk is the logistic 1/(1+e^(pct/k)); it falls as prices rise.
func (b *CycleLiquidityBlend) LiquidityRisk(pct float64) float64 {
	return 1 / (1 + math.Exp(pct/b.cfg.K))
}

func (b *CycleLiquidityBlend) Score(sig models.Signals) (models.RiskScore, error) {
	pct, ok := sig.PctChange(b.cfg.Window)
	if !ok {
		return models.RiskScore{}, fmt.Errorf("blend: missing %d-day percent change", b.cfg.Window)
	}
	out := models.RiskScore{
		Strategy: b.Name(),
		Range:    models.ScoreRange{Min: 0, Max: 1},
	}

	cycle := b.CycleRisk(sig.DaysSinceReference)
	liquidity := b.LiquidityRisk(pct)
	composite := b.cfg.CycleWeight*cycle + b.cfg.LiquidityWeight*liquidity
	out.Components = map[string]float64{
		"cycle_risk":     cycle,
		"liquidity_risk": liquidity,
		"days_since":     sig.DaysSinceReference,
		"pct_change":     pct,
	}

	if !finite(cycle, liquidity, composite) {
		out.Value = NeutralUnit
		out.Neutral = true
	} else {
		out.Value = clamp(composite, 0, 1)
	}
	out.Label = UnitLabel(out.Value)
	return out, nil
}

func (b *CycleLiquidityBlend) Multiplier(score models.RiskScore) float64 {
	return unitMultiplier(b.cfg.Mode, score.Value, b.cfg.MinMultiplier, b.cfg.MaxMultiplier)
}

func (b *CycleLiquidityBlend) Info() models.StrategyInfo {
	mult := "1 - score"
	if b.cfg.Mode == MultiplierLinear {
		mult = fmt.Sprintf("%g + (1 - score) * (%g - %g)", b.cfg.MinMultiplier, b.cfg.MaxMultiplier, b.cfg.MinMultiplier)
	}
	return models.StrategyInfo{
		Name:           b.Name(),
		Description:    fmt.Sprintf("halving cycle (%gd) blended with %d-day logistic liquidity", b.cfg.CycleLength, b.cfg.Window),
		SignConvention: "higher score means buy less",
		Multiplier:     mult,
		Range:          models.ScoreRange{Min: 0, Max: 1},
		Params: map[string]float64{
			"cycle_length":     b.cfg.CycleLength,
			"phase_shift":      b.cfg.PhaseShift,
			"k":                b.cfg.K,
			"window":           float64(b.cfg.Window),
			"cycle_weight":     b.cfg.CycleWeight,
			"liquidity_weight": b.cfg.LiquidityWeight,
		},
	}
}

var _ domsvc.RiskStrategy = (*CycleLiquidityBlend)(nil)

package risk

import (
	"fmt"
	"math"

	"BitDCA/internal/domain/models"
	domsvc "BitDCA/internal/domain/service"
)

type TanhConfig struct {
	K      float64
	Window int
}

// TanhMomentum squashes the windowed percent change through tanh.
// Positive means buy more; the multiplier is 1+score.
type TanhMomentum struct {
	cfg TanhConfig
}

func NewTanhMomentum(cfg TanhConfig) (*TanhMomentum, error) {
	if !(cfg.K > 0) || math.IsInf(cfg.K, 0) {
		return nil, fmt.Errorf("tanh divisor must be positive and finite, got %v", cfg.K)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("tanh window must be positive, got %d", cfg.Window)
	}
	return &TanhMomentum{cfg: cfg}, nil
}

func (m *TanhMomentum) Name() string { return "tanh" }

func (m *TanhMomentum) Requirements() models.StrategyRequirements {
	return models.StrategyRequirements{LookbackDays: m.cfg.Window, PctChangeWindows: []int{m.cfg.Window}}
}

func (m *TanhMomentum) Score(sig models.Signals) (models.RiskScore, error) {
	pct, ok := sig.PctChange(m.cfg.Window)
	if !ok {
		return models.RiskScore{}, fmt.Errorf("tanh: missing %d-day percent change", m.cfg.Window)
	}
	out := models.RiskScore{
		Strategy:   m.Name(),
		Range:      models.ScoreRange{Min: -1, Max: 1, Open: true},
		Components: map[string]float64{"pct_change": pct},
	}

	v := math.Tanh(pct / m.cfg.K)
	switch {
	case !finite(v):
		out.Value = NeutralSigned
		out.Neutral = true
	case v >= 1:
		// tanh rounds to ±1 for |x| > ~19; keep the range open
		out.Value = math.Nextafter(1, 0)
	case v <= -1:
		out.Value = math.Nextafter(-1, 0)
	default:
		out.Value = v
	}
	out.Label = SignedLabel(out.Value)
	return out, nil
}

func (m *TanhMomentum) Multiplier(score models.RiskScore) float64 {
	return 1 + clamp(score.Value, -1, 1)
}

func (m *TanhMomentum) Info() models.StrategyInfo {
	return models.StrategyInfo{
		Name:           m.Name(),
		Description:    fmt.Sprintf("tanh of the %d-day percent change over k=%g", m.cfg.Window, m.cfg.K),
		SignConvention: "positive score means buy more",
		Multiplier:     "1 + score",
		Range:          models.ScoreRange{Min: -1, Max: 1, Open: true},
		Params: map[string]float64{
			"k":      m.cfg.K,
			"window": float64(m.cfg.Window),
		},
	}
}

var _ domsvc.RiskStrategy = (*TanhMomentum)(nil)

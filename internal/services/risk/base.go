package risk

import "math"

// Epsilon is the smallest deviation treated as non-zero (float64 machine epsilon).
const Epsilon = 2.220446049250313e-16

// Neutral scores per range family.
const (
	NeutralUnit   = 0.5
	NeutralSigned = 0.0
)

// Label thresholds. Unit-range strategies treat high scores as expensive;
// signed strategies treat positive scores as cheap.
const (
	unitHigh   = 0.7
	unitLow    = 0.3
	signedHigh = 0.3
	signedLow  = -0.3
)

const (
	LabelBuyLess = "Buy less"
	LabelBuyMore = "Buy more"
	LabelNeutral = "Neutral"
)

// MultiplierMode selects how a unit-range score becomes a purchase multiplier.
type MultiplierMode string

const (
	// MultiplierLinear interpolates between a minimum and maximum bound by (1-score).
	MultiplierLinear MultiplierMode = "linear"
	// MultiplierDirect uses (1-score) as the multiplier.
	MultiplierDirect MultiplierMode = "direct"
)

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// unitMultiplier maps a [0,1] score where higher means "buy less".
func unitMultiplier(mode MultiplierMode, score, lo, hi float64) float64 {
	score = clamp(score, 0, 1)
	if mode == MultiplierDirect {
		return 1 - score
	}
	return lo + (1-score)*(hi-lo)
}

// UnitLabel labels a [0,1] score.
func UnitLabel(score float64) string {
	switch {
	case score > unitHigh:
		return LabelBuyLess
	case score < unitLow:
		return LabelBuyMore
	default:
		return LabelNeutral
	}
}

// SignedLabel labels a (-1,1) score.
func SignedLabel(score float64) string {
	switch {
	case score > signedHigh:
		return LabelBuyMore
	case score < signedLow:
		return LabelBuyLess
	default:
		return LabelNeutral
	}
}

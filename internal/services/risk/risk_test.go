package risk

import (
	"errors"
	"math"
	"testing"

	"BitDCA/internal/domain/models"
	"BitDCA/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviation(t *testing.T, variant DeviationVariant) *DeviationRatio {
	t.Helper()
	d, err := NewDeviationRatio(DeviationConfig{
		Window: 200, Variant: variant, Mode: MultiplierLinear,
		MinMultiplier: 0.5, MaxMultiplier: 1.5,
	})
	require.NoError(t, err)
	return d
}

func newTanh(t *testing.T) *TanhMomentum {
	t.Helper()
	m, err := NewTanhMomentum(TanhConfig{K: 20, Window: 30})
	require.NoError(t, err)
	return m
}

func newBlend(t *testing.T) *CycleLiquidityBlend {
	t.Helper()
	b, err := NewCycleLiquidityBlend(BlendConfig{
		CycleLength: 1460, PhaseShift: 180, K: 20, Window: 108,
		CycleWeight: 0.6, LiquidityWeight: 0.4, Mode: MultiplierDirect,
	})
	require.NoError(t, err)
	return b
}

func TestDeviationExample(t *testing.T) {
	d := newDeviation(t, DeviationSymmetric)
	score, err := d.Score(models.Signals{SpotPrice: 60000, SMA: 50000, MaxDeviation: 10000})
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Value)
	assert.False(t, score.Neutral)
	assert.Equal(t, LabelBuyLess, score.Label)
	assert.Equal(t, 0.5, d.Multiplier(score))

	rec := Recommend(100, 60000, &score, d)
	require.NotNil(t, rec)
	assert.InDelta(t, 50.0, rec.USD, 1e-9)
	assert.Equal(t, "50.00", rec.USDDisplay)
	assert.InDelta(t, rec.USD/60000, rec.BTC, 1e-15)
	assert.Equal(t, "0.00083333", rec.BTCDisplay)
}

func TestDeviationNeutralOnFlatSeries(t *testing.T) {
	for _, variant := range []DeviationVariant{DeviationSymmetric, DeviationAsymmetric} {
		d := newDeviation(t, variant)
		for _, spot := range []float64{1, 50000, 1e12} {
			score, err := d.Score(models.Signals{SpotPrice: spot, SMA: 50000, MaxDeviation: 0})
			require.NoError(t, err)
			assert.Equal(t, 0.5, score.Value)
			assert.True(t, score.Neutral)
		}
		score, _ := d.Score(models.Signals{SpotPrice: 1, SMA: 2, MaxDeviation: Epsilon / 2})
		assert.True(t, score.Neutral)
	}
}

func TestDeviationClampsAtExtremes(t *testing.T) {
	for _, variant := range []DeviationVariant{DeviationSymmetric, DeviationAsymmetric} {
		d := newDeviation(t, variant)
		for _, k := range []float64{-1e6, -100, -1, -0.25, 0, 0.25, 1, 100, 1e6} {
			score, err := d.Score(models.Signals{SMA: 50000, MaxDeviation: 1000, SpotPrice: 50000 + k*1000})
			require.NoError(t, err)
			assert.True(t, score.Range.Contains(score.Value), "variant %s k=%v score=%v", variant, k, score.Value)
			m := d.Multiplier(score)
			assert.GreaterOrEqual(t, m, 0.5)
			assert.LessOrEqual(t, m, 1.5)
		}
	}
}

func TestDeviationVariantsAgreeInsideBand(t *testing.T) {
	sym := newDeviation(t, DeviationSymmetric)
	asym := newDeviation(t, DeviationAsymmetric)
	sig := models.Signals{SpotPrice: 47500, SMA: 50000, MaxDeviation: 10000}
	a, _ := sym.Score(sig)
	b, _ := asym.Score(sig)
	assert.InDelta(t, 0.375, a.Value, 1e-12)
	assert.InDelta(t, a.Value, b.Value, 1e-12)
}

func TestTanhExample(t *testing.T) {
	m := newTanh(t)
	score, err := m.Score(models.Signals{PctChanges: map[int]float64{30: -20}})
	require.NoError(t, err)
	assert.InDelta(t, -0.7616, score.Value, 1e-4)
	assert.Equal(t, LabelBuyLess, score.Label)

	rec := Recommend(100, 50000, &score, m)
	require.NotNil(t, rec)
	assert.InDelta(t, 23.84, rec.USD, 1e-2)
	assert.Equal(t, "23.84", rec.USDDisplay)
}

func TestTanhStaysInsideOpenRange(t *testing.T) {
	m := newTanh(t)
	for _, pct := range []float64{-1e308, -1e4, -500, 0, 500, 1e4, 1e308, math.Inf(1), math.Inf(-1)} {
		score, err := m.Score(models.Signals{PctChanges: map[int]float64{30: pct}})
		require.NoError(t, err)
		assert.Greater(t, score.Value, -1.0, "pct=%v", pct)
		assert.Less(t, score.Value, 1.0, "pct=%v", pct)
		assert.True(t, score.Range.Contains(score.Value))
		assert.Greater(t, m.Multiplier(score), 0.0)
	}
}

func TestTanhNeutralOnNaN(t *testing.T) {
	score, err := newTanh(t).Score(models.Signals{PctChanges: map[int]float64{30: math.NaN()}})
	require.NoError(t, err)
	assert.True(t, score.Neutral)
	assert.Equal(t, 0.0, score.Value)
	assert.Equal(t, LabelNeutral, score.Label)
}

func TestTanhRequiresWindow(t *testing.T) {
	_, err := newTanh(t).Score(models.Signals{PctChanges: map[int]float64{108: 5}})
	assert.Error(t, err)
}

func TestBlendExample(t *testing.T) {
	b := newBlend(t)
	score, err := b.Score(models.Signals{
		DaysSinceReference: 450,
		PctChanges:         map[int]float64{108: 10},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7085968013061584, score.Components["cycle_risk"], 1e-12)
	assert.InDelta(t, 0.3775406687981454, score.Components["liquidity_risk"], 1e-12)
	assert.InDelta(t, 0.5761743483029532, score.Value, 1e-12)
	assert.InDelta(t, 0.4238256516970468, b.Multiplier(score), 1e-12)
	assert.Equal(t, LabelNeutral, score.Label)
}

func TestBlendClamped(t *testing.T) {
	b, err := NewCycleLiquidityBlend(BlendConfig{
		CycleLength: 1460, PhaseShift: 180, K: 20, Window: 108,
		CycleWeight: 0.9, LiquidityWeight: 0.9, Mode: MultiplierDirect,
	})
	require.NoError(t, err)
	for _, days := range []float64{0, 185, 365, 550, 1e6} {
		for _, pct := range []float64{-1e6, -90, 0, 90, 1e6} {
			score, err := b.Score(models.Signals{DaysSinceReference: days, PctChanges: map[int]float64{108: pct}})
			require.NoError(t, err)
			assert.True(t, score.Range.Contains(score.Value), "days=%v pct=%v v=%v", days, pct, score.Value)
			assert.GreaterOrEqual(t, b.Multiplier(score), 0.0)
		}
	}
}

func TestConstructorsRejectBadConfig(t *testing.T) {
	_, err := NewTanhMomentum(TanhConfig{K: 0, Window: 30})
	assert.Error(t, err)
	_, err = NewDeviationRatio(DeviationConfig{Window: 200, Variant: "weird", Mode: MultiplierLinear})
	assert.Error(t, err)
	_, err = NewCycleLiquidityBlend(BlendConfig{CycleLength: 0, K: 20, Window: 108, Mode: MultiplierDirect})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistryFromConfig(config.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"deviation", "tanh", "blend"}, reg.Names())
	assert.Equal(t, "deviation", reg.Default().Name())

	s, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, "deviation", s.Name())

	_, err = reg.Get("moon")
	assert.True(t, errors.Is(err, models.ErrUnknownStrategy))
	assert.EqualError(t, err, `unknown risk strategy "moon" (known: deviation, tanh, blend)`)

	req := reg.Requirements(30)
	assert.Equal(t, 200, req.LookbackDays)
	assert.Equal(t, []int{30, 108}, req.PctChangeWindows)

	infos := reg.Infos()
	require.Len(t, infos, 3)
	assert.True(t, infos[0].Default)
	assert.False(t, infos[1].Default)
}

func TestRegistryRejectsUnknownDefault(t *testing.T) {
	_, err := NewRegistry("moon", newTanh(t))
	assert.True(t, errors.Is(err, models.ErrUnknownStrategy))
}

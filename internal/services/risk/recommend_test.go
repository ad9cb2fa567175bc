package risk

import (
	"errors"
	"testing"

	"BitDCA/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		present bool
		bad     bool
	}{
		{in: "", present: false},
		{in: "   ", present: false},
		{in: "100", want: 100, present: true},
		{in: " 42.5 ", want: 42.5, present: true},
		{in: "0", want: 0, present: true},
		{in: "-1", bad: true},
		{in: "abc", bad: true},
		{in: "1e999", bad: true},
	}
	for _, tc := range cases {
		got, present, err := ValidateAmount(tc.in)
		if tc.bad {
			var ve *models.InputValidationError
			require.True(t, errors.As(err, &ve), "input %q", tc.in)
			assert.Equal(t, "amount", ve.Field)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.present, present, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestRecommendWithheld(t *testing.T) {
	d := newDeviation(t, DeviationSymmetric)
	score := models.RiskScore{Value: 0.5}

	assert.Nil(t, Recommend(0, 50000, &score, d))
	assert.Nil(t, Recommend(100, 0, &score, d))
	assert.Nil(t, Recommend(100, -5, &score, d))
	assert.Nil(t, Recommend(100, 50000, nil, d))
	assert.Nil(t, Recommend(100, 50000, &score, nil))
}

func TestRecommendBTCMatchesUSD(t *testing.T) {
	d := newDeviation(t, DeviationSymmetric)
	for _, v := range []float64{0, 0.1, 0.5, 0.9, 1} {
		score := models.RiskScore{Value: v}
		for _, spot := range []float64{1, 123.45, 98000} {
			rec := Recommend(250, spot, &score, d)
			require.NotNil(t, rec)
			assert.InDelta(t, rec.USD/spot, rec.BTC, 1e-12)
			assert.GreaterOrEqual(t, rec.USD, 0.0)
		}
	}
}

func TestRecommendDirectMultiplierNeverNegative(t *testing.T) {
	b := newBlend(t)
	score := models.RiskScore{Value: 1}
	rec := Recommend(100, 50000, &score, b)
	require.NotNil(t, rec)
	assert.Equal(t, 0.0, rec.USD)
	assert.Equal(t, "0.00", rec.USDDisplay)
	assert.Equal(t, "0.00000000", rec.BTCDisplay)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, LabelBuyLess, UnitLabel(0.71))
	assert.Equal(t, LabelNeutral, UnitLabel(0.7))
	assert.Equal(t, LabelBuyMore, UnitLabel(0.29))
	assert.Equal(t, LabelBuyMore, SignedLabel(0.31))
	assert.Equal(t, LabelBuyLess, SignedLabel(-0.31))
	assert.Equal(t, LabelNeutral, SignedLabel(0))
}

package signals

import (
	"errors"
	"math"
	"testing"
	"time"

	"BitDCA/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func seriesOf(t *testing.T, prices ...float64) models.PriceSeries {
	t.Helper()
	pts := make([]models.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = models.PricePoint{Time: day0.AddDate(0, 0, i), Price: p}
	}
	s, err := models.NewPriceSeries(pts)
	require.NoError(t, err)
	return s
}

func flat(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func kindOf(t *testing.T, err error) models.IngestionKind {
	t.Helper()
	var ie *models.IngestionError
	require.True(t, errors.As(err, &ie), "expected IngestionError, got %v", err)
	return ie.Kind
}

func TestSimpleMovingAverage(t *testing.T) {
	assert.Equal(t, 0.0, SimpleMovingAverage(nil, 200))
	assert.InDelta(t, 2.5, SimpleMovingAverage([]float64{1, 2, 3, 4}, 0), 1e-12)
	assert.InDelta(t, 3.5, SimpleMovingAverage([]float64{1, 2, 3, 4}, 2), 1e-12)
	// fewer points than the window uses all of them
	assert.InDelta(t, 2.5, SimpleMovingAverage([]float64{1, 2, 3, 4}, 200), 1e-12)
}

func TestSimpleMovingAverageCompensated(t *testing.T) {
	prices := make([]float64, 0, 10001)
	prices = append(prices, 1e16)
	for i := 0; i < 10000; i++ {
		prices = append(prices, 1)
	}
	want := (1e16 + 10000) / 10001
	assert.InDelta(t, want, SimpleMovingAverage(prices, 0), 1e-3)
}

func TestMaxAbsoluteDeviation(t *testing.T) {
	assert.Equal(t, 0.0, MaxAbsoluteDeviation(nil, 100))
	assert.Equal(t, 0.0, MaxAbsoluteDeviation(flat(40, 100), 100))
	assert.Equal(t, 30.0, MaxAbsoluteDeviation([]float64{90, 130, 100}, 100))
}

func TestPercentChange(t *testing.T) {
	pct, err := PercentChange(100, 80)
	require.NoError(t, err)
	assert.InDelta(t, -20, pct, 1e-12)

	_, err = PercentChange(0, 80)
	require.Error(t, err)
	assert.Equal(t, models.IngestionZeroBasePrice, kindOf(t, err))

	_, err = PercentChange(100, math.Inf(1))
	assert.Equal(t, models.IngestionMalformedPayload, kindOf(t, err))
}

func TestPercentChangeOver(t *testing.T) {
	prices := []float64{50, 100, 110, 120}
	pct, err := PercentChangeOver(prices, 2, 150)
	require.NoError(t, err)
	assert.InDelta(t, 50, pct, 1e-12)

	// window longer than the series clamps to the oldest point
	pct, err = PercentChangeOver(prices, 500, 150)
	require.NoError(t, err)
	assert.InDelta(t, 200, pct, 1e-12)

	_, err = PercentChangeOver(nil, 30, 150)
	assert.Equal(t, models.IngestionMalformedPayload, kindOf(t, err))
}

func TestDaysSince(t *testing.T) {
	ref := time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 450, DaysSince(ref, ref.AddDate(0, 0, 450)), 1e-9)
	assert.InDelta(t, 0.5, DaysSince(ref, ref.Add(12*time.Hour)), 1e-9)
	assert.Less(t, DaysSince(ref, ref.Add(-time.Hour)), 0.0)
}

func TestValidateSeries(t *testing.T) {
	empty, err := models.NewPriceSeries(nil)
	require.NoError(t, err)
	assert.Equal(t, models.IngestionMalformedPayload, kindOf(t, ValidateSeries(empty, 30)))

	short := seriesOf(t, flat(29, 100)...)
	assert.Equal(t, models.IngestionInsufficientHistory, kindOf(t, ValidateSeries(short, 30)))

	assert.NoError(t, ValidateSeries(seriesOf(t, flat(30, 100)...), 30))
}

func TestExtract(t *testing.T) {
	prices := flat(250, 40000)
	// only the trailing 200 points enter the SMA window
	for i := 50; i < 250; i++ {
		prices[i] = 50000
	}
	prices[249] = 60000
	series := seriesOf(t, prices...)
	now := day0.AddDate(0, 0, 260)
	ref := day0

	sig, err := Extract(series, 55000, now, Config{
		MinPoints:        30,
		SMAWindow:        200,
		PctChangeWindows: []int{30, 108},
		Reference:        ref,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, sig.SMAWindow)
	assert.Equal(t, 250, sig.Points)
	assert.InDelta(t, 50050, sig.SMA, 1e-6)
	assert.InDelta(t, 9950, sig.MaxDeviation, 1e-6)
	assert.InDelta(t, 260, sig.DaysSinceReference, 1e-9)
	assert.Equal(t, day0, sig.FirstDate)
	assert.Equal(t, day0.AddDate(0, 0, 249), sig.LastDate)

	pct30, ok := sig.PctChange(30)
	require.True(t, ok)
	assert.InDelta(t, 10, pct30, 1e-9)
	_, ok = sig.PctChange(7)
	assert.False(t, ok)
}

func TestExtractRejectsBadInput(t *testing.T) {
	cfg := Config{MinPoints: 30, SMAWindow: 200, PctChangeWindows: []int{30}}

	_, err := Extract(seriesOf(t, flat(10, 100)...), 100, day0, cfg)
	assert.Equal(t, models.IngestionInsufficientHistory, kindOf(t, err))

	_, err = Extract(seriesOf(t, flat(40, 100)...), 0, day0, cfg)
	assert.Equal(t, models.IngestionMalformedPayload, kindOf(t, err))
}

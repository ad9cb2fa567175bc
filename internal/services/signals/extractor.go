package signals

import (
	"fmt"
	"math"
	"time"

	"BitDCA/internal/domain/models"
)

// Config controls which windows the extractor uses.
type Config struct {
	MinPoints        int
	SMAWindow        int
	PctChangeWindows []int
	Reference        time.Time
}

// ValidateSeries rejects series that cannot support any signal.
// An empty series is a malformed payload; a short one is insufficient history.
func ValidateSeries(series models.PriceSeries, minPoints int) error {
	if series.Len() == 0 {
		return models.NewIngestionError(models.IngestionMalformedPayload, "price series is empty", nil)
	}
	if series.Len() < minPoints {
		return models.NewIngestionError(models.IngestionInsufficientHistory,
			fmt.Sprintf("got %d points, need at least %d", series.Len(), minPoints), nil)
	}
	return nil
}

// SimpleMovingAverage returns the mean of the last window prices, or of all
// prices when fewer are supplied or window <= 0. Summation is compensated.
func SimpleMovingAverage(prices []float64, window int) float64 {
	if len(prices) == 0 {
		return 0
	}
	start := 0
	if window > 0 && window < len(prices) {
		start = len(prices) - window
	}
	var sum, c float64
	for _, p := range prices[start:] {
		y := p - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return sum / float64(len(prices)-start)
}

// MaxAbsoluteDeviation is max |p - reference| over prices; 0 when empty.
func MaxAbsoluteDeviation(prices []float64, reference float64) float64 {
	var out float64
	for _, p := range prices {
		if d := math.Abs(p - reference); d > out {
			out = d
		}
	}
	return out
}

// PercentChange is (end-start)/start*100. A zero or non-finite start is an
// ingestion error rather than an infinite result.
func PercentChange(start, end float64) (float64, error) {
	if start == 0 || math.IsNaN(start) || math.IsInf(start, 0) {
		return 0, models.NewIngestionError(models.IngestionZeroBasePrice,
			fmt.Sprintf("cannot compute percent change from base %v", start), nil)
	}
	if math.IsNaN(end) || math.IsInf(end, 0) {
		return 0, models.NewIngestionError(models.IngestionMalformedPayload,
			fmt.Sprintf("non-finite end price %v", end), nil)
	}
	return (end - start) / start * 100, nil
}

// PercentChangeOver measures spot against the point `days` entries before the
// newest one, clamped to the oldest point.
func PercentChangeOver(prices []float64, days int, spot float64) (float64, error) {
	if len(prices) == 0 {
		return 0, models.NewIngestionError(models.IngestionMalformedPayload, "price series is empty", nil)
	}
	idx := len(prices) - 1 - days
	if idx < 0 {
		idx = 0
	}
	return PercentChange(prices[idx], spot)
}

// DaysSince returns fractional days elapsed from reference to now. It is
// negative when now precedes the reference.
func DaysSince(reference, now time.Time) float64 {
	return now.Sub(reference).Hours() / 24
}

// Extract derives every scalar signal in one pass over the inputs.
func Extract(series models.PriceSeries, spot float64, now time.Time, cfg Config) (models.Signals, error) {
	if err := ValidateSeries(series, cfg.MinPoints); err != nil {
		return models.Signals{}, err
	}
	if spot <= 0 || math.IsNaN(spot) || math.IsInf(spot, 0) {
		return models.Signals{}, models.NewIngestionError(models.IngestionMalformedPayload,
			fmt.Sprintf("spot price %v is not a positive number", spot), nil)
	}

	prices := series.Prices()
	window := series.Tail(cfg.SMAWindow).Prices()
	sma := SimpleMovingAverage(window, 0)

	pcts := make(map[int]float64, len(cfg.PctChangeWindows))
	for _, days := range cfg.PctChangeWindows {
		pct, err := PercentChangeOver(prices, days, spot)
		if err != nil {
			return models.Signals{}, err
		}
		pcts[days] = pct
	}

	first, _ := series.First()
	last, _ := series.Last()
	return models.Signals{
		SpotPrice:          spot,
		SMA:                sma,
		SMAWindow:          len(window),
		MaxDeviation:       MaxAbsoluteDeviation(window, sma),
		PctChanges:         pcts,
		DaysSinceReference: DaysSince(cfg.Reference, now),
		Points:             series.Len(),
		FirstDate:          first.Time,
		LastDate:           last.Time,
		EvaluatedAt:        now,
	}, nil
}

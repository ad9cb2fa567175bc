package models

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is a single daily observation from the market-data feed.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PriceSeries is an ordered, immutable sequence of price points.
// Build it with NewPriceSeries so ordering and positivity are checked once.
type PriceSeries struct {
	points []PricePoint
}

// NewPriceSeries validates and copies points. Timestamps must be strictly
// increasing and every price must be a positive finite number.
func NewPriceSeries(points []PricePoint) (PriceSeries, error) {
	out := make([]PricePoint, len(points))
	for i, p := range points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			return PriceSeries{}, NewIngestionError(IngestionMalformedPayload,
				fmt.Sprintf("price at index %d is not a positive number", i), nil)
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return PriceSeries{}, NewIngestionError(IngestionMalformedPayload,
				fmt.Sprintf("timestamp at index %d is not increasing", i), nil)
		}
		out[i] = p
	}
	return PriceSeries{points: out}, nil
}

// Len returns the number of points.
func (s PriceSeries) Len() int { return len(s.points) }

// Points returns a copy of the underlying points.
func (s PriceSeries) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Prices returns the price column.
func (s PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Price
	}
	return out
}

// First returns the oldest point; ok is false for an empty series.
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[0], true
}

// Last returns the newest point; ok is false for an empty series.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.points) == 0 {
		return PricePoint{}, false
	}
	return s.points[len(s.points)-1], true
}

// Tail returns the last n points as a new series (all points when n >= Len).
func (s PriceSeries) Tail(n int) PriceSeries {
	if n <= 0 || n >= len(s.points) {
		return s
	}
	return PriceSeries{points: s.points[len(s.points)-n:]}
}

// MarketSnapshot is the raw result of one ingestion cycle.
type MarketSnapshot struct {
	Symbol    string        `json:"symbol"`
	Spot      float64       `json:"spot"`
	History   []PricePoint  `json:"history"`
	FetchedAt time.Time     `json:"fetched_at"`
	Lookback  int           `json:"lookback_days"`
	Latency   time.Duration `json:"-"`
}

// Signals are the scalar features derived from a price series.
type Signals struct {
	SpotPrice          float64         `json:"spot_price"`
	SMA                float64         `json:"sma"`
	SMAWindow          int             `json:"sma_window"`
	MaxDeviation       float64         `json:"max_deviation"`
	PctChanges         map[int]float64 `json:"pct_changes"`
	DaysSinceReference float64         `json:"days_since_reference"`
	Points             int             `json:"points"`
	FirstDate          time.Time       `json:"first_date"`
	LastDate           time.Time       `json:"last_date"`
	EvaluatedAt        time.Time       `json:"evaluated_at"`
}

// PctChange returns the percent change measured over the given window.
func (s Signals) PctChange(days int) (float64, bool) {
	v, ok := s.PctChanges[days]
	return v, ok
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingestions      *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastSpot        *prometheus.GaugeVec
	score           *prometheus.GaugeVec
	neutral         *prometheus.CounterVec
	recommendations *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg; tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		ingestions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitdca_ingestions_total",
				Help: "Ingestion cycles by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitdca_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastSpot: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bitdca_spot_price_usd",
				Help: "Last ingested spot price",
			},
			[]string{"symbol"},
		),
		score: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bitdca_risk_score",
				Help: "Last computed risk score by strategy",
			},
			[]string{"strategy"},
		),
		neutral: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitdca_neutral_fallbacks_total",
				Help: "Scores forced to neutral by degenerate inputs",
			},
			[]string{"strategy"},
		),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bitdca_recommendations_total",
				Help: "Recommendations produced by strategy",
			},
			[]string{"strategy"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bitdca_fetch_duration_seconds",
				Help:    "Duration of market-data fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordIngestion(strategy, outcome string) {
	r.ingestions.WithLabelValues(strategy, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordSpotPrice(symbol string, price float64) {
	r.lastSpot.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordScore(strategy string, value float64, neutral bool) {
	r.score.WithLabelValues(strategy).Set(value)
	if neutral {
		r.neutral.WithLabelValues(strategy).Inc()
	}
}

func (r *Recorder) RecordRecommendation(strategy string) {
	r.recommendations.WithLabelValues(strategy).Inc()
}

// RecordFetchLatency records fetch latency in seconds.
func (r *Recorder) RecordFetchLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

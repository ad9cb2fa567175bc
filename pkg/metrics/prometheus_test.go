package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordIngestion("deviation", "ok")
	r.RecordIngestion("deviation", "ok")
	r.RecordScore("tanh", -0.5, true)
	r.RecordSpotPrice("BTC", 65000)

	if got := testutil.ToFloat64(r.ingestions.WithLabelValues("deviation", "ok")); got != 2 {
		t.Fatalf("ingestions = %v", got)
	}
	if got := testutil.ToFloat64(r.score.WithLabelValues("tanh")); got != -0.5 {
		t.Fatalf("score = %v", got)
	}
	if got := testutil.ToFloat64(r.neutral.WithLabelValues("tanh")); got != 1 {
		t.Fatalf("neutral = %v", got)
	}
	if got := testutil.ToFloat64(r.lastSpot.WithLabelValues("BTC")); got != 65000 {
		t.Fatalf("spot = %v", got)
	}
}

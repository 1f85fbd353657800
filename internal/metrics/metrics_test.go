package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveQuery(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveQuery("roots", time.Millisecond, nil)
	m.ObserveQuery("roots", time.Millisecond, nil)
	m.ObserveQuery("roots", time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("roots", "ok")); got != 2 {
		t.Errorf("expected 2 ok queries, got %v", got)
	}
	if got := testutil.ToFloat64(m.QueriesTotal.WithLabelValues("roots", "error")); got != 1 {
		t.Errorf("expected 1 failed query, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveQuery("roots", time.Second, nil)
	m.ObserveLoad("flat", 1, nil)
}

func TestRoundTrips(t *testing.T) {
	ctx, rt := WithRoundTrips(context.Background())
	CountRoundTrip(ctx)
	CountRoundTrip(ctx)

	if rt.Load() != 2 {
		t.Errorf("expected 2 round trips, got %d", rt.Load())
	}

	// No counter attached: must not panic.
	CountRoundTrip(context.Background())
}

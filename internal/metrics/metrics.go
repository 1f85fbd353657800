// Package metrics holds the Prometheus collectors for the order query engine
// and a per-call round-trip counter carried on the context.
package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// QueriesTotal counts store round trips by query shape and outcome.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration is the latency of a single round trip, rows included.
	QueryDuration *prometheus.HistogramVec
	// LoadsTotal counts aggregate loads by strategy and outcome.
	LoadsTotal *prometheus.CounterVec
	// RoundTrips is the number of queries one aggregate load needed.
	RoundTrips *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueriesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderquery_store_queries_total",
				Help: "Total number of queries issued to the order store",
			},
			[]string{"shape", "outcome"},
		),
		QueryDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orderquery_store_query_duration_seconds",
				Help:    "Order store query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"shape"},
		),
		LoadsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orderquery_loads_total",
				Help: "Total number of aggregate loads",
			},
			[]string{"strategy", "outcome"},
		),
		RoundTrips: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orderquery_load_round_trips",
				Help:    "Store round trips per aggregate load",
				Buckets: []float64{1, 2, 3, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"strategy"},
		),
	}
}

func (m *Metrics) ObserveQuery(shape string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(shape, outcome(err)).Inc()
	m.QueryDuration.WithLabelValues(shape).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveLoad(strategy string, roundTrips int64, err error) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(strategy, outcome(err)).Inc()
	if err == nil {
		m.RoundTrips.WithLabelValues(strategy).Observe(float64(roundTrips))
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type roundTripKey struct{}

// RoundTrips counts queries issued under one context.
type RoundTrips struct {
	n atomic.Int64
}

func (r *RoundTrips) Load() int64 {
	if r == nil {
		return 0
	}
	return r.n.Load()
}

// WithRoundTrips attaches a fresh counter to ctx.
func WithRoundTrips(ctx context.Context) (context.Context, *RoundTrips) {
	rt := &RoundTrips{}
	return context.WithValue(ctx, roundTripKey{}, rt), rt
}

// CountRoundTrip increments the counter attached to ctx, if any.
func CountRoundTrip(ctx context.Context) {
	if rt, ok := ctx.Value(roundTripKey{}).(*RoundTrips); ok {
		rt.n.Add(1)
	}
}

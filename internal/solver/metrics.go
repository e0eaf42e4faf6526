package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSat     = "sat"
	OutcomeUnsat   = "unsat"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

type Metrics struct {
	Queries       *prometheus.CounterVec
	QueryDuration prometheus.Histogram
}

// NewMetrics reg为nil时不注册
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gdetector_solver_queries_total",
			Help: "Total number of solver queries by outcome",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gdetector_solver_query_duration_seconds",
			Help:    "Solver query latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Queries, m.QueryDuration)
	}
	return m
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Queries.WithLabelValues(outcome).Inc()
	m.QueryDuration.Observe(d.Seconds())
}

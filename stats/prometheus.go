package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// promCollectors mirrors the teacher's thin metrics.Metrics wrapper
// (metrics/metrics.go): a handful of named collectors registered once
// against whatever Registerer the caller supplied.
type promCollectors struct {
	calls    *prometheus.CounterVec
	timeouts *prometheus.CounterVec
	crashes  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func newPromCollectors(reg prometheus.Registerer) *promCollectors {
	p := &promCollectors{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abduce",
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total oracle invocations by query family.",
		}, []string{"oracle"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abduce",
			Subsystem: "oracle",
			Name:      "timeouts_total",
			Help:      "Total oracle invocations that timed out, by query family.",
		}, []string{"oracle"}),
		crashes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "abduce",
			Subsystem: "oracle",
			Name:      "crashes_total",
			Help:      "Total oracle invocations that exited non-zero, by query family.",
		}, []string{"oracle"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "abduce",
			Subsystem: "oracle",
			Name:      "call_seconds",
			Help:      "Oracle invocation wall-clock time, by query family.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"oracle"}),
	}
	reg.MustRegister(p.calls, p.timeouts, p.crashes, p.latency)
	return p
}

func (p *promCollectors) observeOracleCall(key string, elapsed time.Duration, timedOut, crashed bool) {
	p.calls.WithLabelValues(key).Inc()
	if timedOut {
		p.timeouts.WithLabelValues(key).Inc()
	}
	if crashed {
		p.crashes.WithLabelValues(key).Inc()
	}
	p.latency.WithLabelValues(key).Observe(elapsed.Seconds())
}

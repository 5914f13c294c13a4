package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts remote calls by operation and outcome (ok, misconfigured, transient).
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chamber_remote_requests_total",
		Help: "Total number of control server requests by operation and outcome",
	}, []string{"op", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chamber_remote_request_duration_seconds",
		Help:    "Duration of control server requests by operation",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"op"})
)

func outcome(err error) string {
	if err == nil {
		return "ok"
	}

	return KindOf(err).String()
}

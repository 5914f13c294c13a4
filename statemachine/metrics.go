package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

// Recovery reasons, used both as metric labels and event reasons.
const (
	reasonUnknownState = "unknown_state"
	reasonStateFailed  = "state_failed"
)

var (
	// stateVisitsTotal tracks state exits by machine, state and outcome (success/error).
	stateVisitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_state_visits_total",
		Help: "Total number of state visits by machine, state, and outcome (success or error)",
	}, []string{"machine", "state", "outcome"})

	transitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of state transitions by machine, from_state, and to_state",
	}, []string{"machine", "from_state", "to_state"})

	recoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_recoveries_total",
		Help: "Total number of jumps to the recovery state by machine and reason",
	}, []string{"machine", "reason"})

	// stateDuration is dominated by poll loops, so buckets reach into hours.
	stateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statemachine_state_duration_seconds",
		Help:    "Duration of state execution by machine, state, and outcome",
		Buckets: []float64{0.1, 1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
	}, []string{"machine", "state", "outcome"})
)

func outcomeOf(err error) string {
	if err != nil {
		return outcomeError
	}

	return outcomeSuccess
}

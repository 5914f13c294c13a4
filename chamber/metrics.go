package chamber

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chamber_retries_total",
		Help: "Total number of retried remote calls by state and operation",
	}, []string{"state", "op"})

	temperatureF = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chamber_temperature_fahrenheit",
		Help: "Last temperature reading",
	})

	relativeHumidity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chamber_relative_humidity_percent",
		Help: "Last relative humidity reading",
	})

	actuatorOn = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "chamber_actuator_on",
		Help: "Last commanded actuator state (1 = on)",
	}, []string{"actuator"})
)

func boolGauge(on bool) float64 {
	if on {
		return 1
	}

	return 0
}

package supervisor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	launchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrider_launches_total",
		Help: "Successful sidecar launches.",
	}, []string{"sidecar"})

	launchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrider_launch_failures_total",
		Help: "Launch attempts that failed or exited within the settle window.",
	}, []string{"sidecar"})

	circuitTripsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrider_circuit_trips_total",
		Help: "Keep-alive loops halted by the circuit breaker.",
	}, []string{"sidecar"})

	portNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outrider_port_notifications_total",
		Help: "Port subscriber callbacks fired.",
	}, []string{"sidecar"})

	sidecarUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outrider_sidecar_up",
		Help: "Whether the supervised process is currently believed alive.",
	}, []string{"sidecar"})

	sidecarPort = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outrider_sidecar_port",
		Help: "Most recently negotiated port for the sidecar.",
	}, []string{"sidecar"})
)

func recordLaunch(name string) {
	launchesTotal.WithLabelValues(name).Inc()
}

func recordLaunchFailure(name string) {
	launchFailuresTotal.WithLabelValues(name).Inc()
}

func recordCircuitTrip(name string) {
	circuitTripsTotal.WithLabelValues(name).Inc()
}

func recordPortNotify(name string, n int) {
	portNotificationsTotal.WithLabelValues(name).Add(float64(n))
}

func setUpGauge(name string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	sidecarUp.WithLabelValues(name).Set(v)
}

func setPortGauge(name string, port int) {
	sidecarPort.WithLabelValues(name).Set(float64(port))
}

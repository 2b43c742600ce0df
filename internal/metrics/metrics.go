// Package metrics holds the Prometheus collectors exported by the console.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var NavigationDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "console",
	Subsystem: "guard",
	Name:      "decisions_total",
}, []string{"outcome", "reason"})

var ProfileFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "console",
	Subsystem: "guard",
	Name:      "profile_fetches_total",
}, []string{"result"})

var ViewLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "console",
	Subsystem: "views",
	Name:      "loads_total",
}, []string{"result"})

var BackendDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "console",
	Subsystem: "backend",
	Name:      "request_duration_seconds",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"method", "status"})

func collectors() []prometheus.Collector {
	return []prometheus.Collector{NavigationDecisions, ProfileFetches, ViewLoads, BackendDuration}
}

// Register adds the console collectors to reg. Registering twice on the same
// registry is not an error.
func Register(reg prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the collectors registered on reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

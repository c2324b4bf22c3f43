package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	advancesTotal   *prometheus.CounterVec
	advanceDuration *prometheus.HistogramVec
	problemSize     *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.GaugeVec) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myopic_advances_total",
			Help: "Number of rolling horizon advances",
		},
		[]string{"model", "status"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "myopic_advance_duration_seconds",
			Help:    "Duration of one advance including problem assembly and solve",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	size := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "myopic_problem_size",
			Help: "Size of the last assembled problem",
		},
		[]string{"model", "kind"},
	)
	return total, dur, size
}

func init() {
	advancesTotal, advanceDuration, problemSize = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(advancesTotal, advanceDuration, problemSize)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	advancesTotal, advanceDuration, problemSize = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HerbHall/rangeping/pkg/models"
)

// Metrics are the Prometheus collectors updated by an Executor.
type Metrics struct {
	probes   *prometheus.CounterVec
	duration prometheus.Histogram
	sweeps   *prometheus.CounterVec
}

// NewMetrics registers the sweep collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rangeping",
			Name:      "probes_total",
			Help:      "Probes run, by outcome.",
		}, []string{"outcome"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "rangeping",
			Name:      "probe_duration_seconds",
			Help:      "Wall time of a single probe.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
		}),
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rangeping",
			Name:      "sweeps_total",
			Help:      "Sweeps finished, by status.",
		}, []string{"status"}),
	}
}

func (m *Metrics) observeProbe(o models.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.probes.WithLabelValues(string(o)).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeSweep(status string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(status).Inc()
}

package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts pipeline activity.
type Metrics struct {
	Passes       prometheus.Counter
	Publications prometheus.Counter
	Skipped      prometheus.Counter
	Coalesced    prometheus.Counter
	Visible      prometheus.Gauge
}

// NewMetrics creates the pipeline metrics and registers them with reg when
// reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lhn_pipeline_passes_total",
			Help: "Recomputation passes run.",
		}),
		Publications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lhn_pipeline_publications_total",
			Help: "Orderings published to the presentation layer.",
		}),
		Skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lhn_pipeline_skipped_publications_total",
			Help: "Passes whose ordering equalled the last published one.",
		}),
		Coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lhn_pipeline_coalesced_changes_total",
			Help: "Store changes folded into an already pending pass.",
		}),
		Visible: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lhn_pipeline_visible_reports",
			Help: "Reports in the last computed ordering.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Passes, m.Publications, m.Skipped, m.Coalesced, m.Visible)
	}
	return m
}

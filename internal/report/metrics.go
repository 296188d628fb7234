package report

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rflorenc/nexus-migration-workbench/internal/models"
)

// Metrics counts row outcomes per kind and result. Each instance owns its
// registry so several runs in one process (tests, the HTTP surface) do not
// collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry
	outcomes *prometheus.CounterVec
	flagged  *prometheus.CounterVec
	runs     *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexusmig",
				Subsystem: "migration",
				Name:      "rows_total",
				Help:      "Rows processed, by entity kind and result.",
			},
			[]string{"kind", "result"},
		),
		flagged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexusmig",
				Subsystem: "migration",
				Name:      "flagged_total",
				Help:      "Created entities flagged for manual review.",
			},
			[]string{"kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nexusmig",
				Name:      "runs_total",
				Help:      "Finished runs, by status.",
			},
			[]string{"status"},
		),
	}
	m.registry.MustRegister(m.outcomes, m.flagged, m.runs)
	return m
}

// Observe implements migration.Observer.
func (m *Metrics) Observe(o models.Outcome) {
	m.outcomes.WithLabelValues(string(o.Kind), string(o.Result)).Inc()
	if o.Flagged {
		m.flagged.WithLabelValues(string(o.Kind)).Inc()
	}
}

// RunFinished counts one finished run.
func (m *Metrics) RunFinished(status string) {
	m.runs.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the counters in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating metrics directory")
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrap(err, "writing metrics")
	}
	return nil
}

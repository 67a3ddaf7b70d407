// Package metrics exports tick results for the node_exporter textfile
// collector. A tick builds a fresh registry, records its outcome, and
// rewrites the textfile; nothing is served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick is the outcome of one run as seen by the metrics exporter.
type Tick struct {
	Started     time.Time
	Duration    time.Duration
	State       string
	Kind        string
	Listed      int
	Detected    int
	Staged      int
	Failed      int
	Notified    int
	Succeeded   bool
	LastSuccess time.Time
	Tracked     int
}

// Recorder holds the gauges written for a single tick.
type Recorder struct {
	registry *prometheus.Registry

	lastRun      prometheus.Gauge
	lastSuccess  prometheus.Gauge
	duration     prometheus.Gauge
	success      prometheus.Gauge
	files        *prometheus.GaugeVec
	notification *prometheus.GaugeVec
	tracked      prometheus.Gauge
}

// New creates a recorder with its own registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_last_run_timestamp_seconds",
			Help: "Unix time the most recent tick started",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_last_success_timestamp_seconds",
			Help: "Unix time of the most recent committed tick",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_run_duration_seconds",
			Help: "Wall time of the most recent tick",
		}),
		success: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_run_success",
			Help: "1 if the most recent tick committed, 0 otherwise",
		}),
		files: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dropwatch_run_files",
			Help: "Files seen by the most recent tick, by stage",
		}, []string{"stage"}),
		notification: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dropwatch_run_notification",
			Help: "1 for the kind of card the most recent tick delivered",
		}, []string{"kind"}),
		tracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dropwatch_snapshot_files",
			Help: "Files recorded in the snapshot after the most recent tick",
		}),
	}
}

// Observe sets every gauge from tick.
func (r *Recorder) Observe(tick Tick) {
	r.lastRun.Set(float64(tick.Started.Unix()))
	if !tick.LastSuccess.IsZero() {
		r.lastSuccess.Set(float64(tick.LastSuccess.Unix()))
	}
	r.duration.Set(tick.Duration.Seconds())
	if tick.Succeeded {
		r.success.Set(1)
	} else {
		r.success.Set(0)
	}
	r.files.WithLabelValues("listed").Set(float64(tick.Listed))
	r.files.WithLabelValues("detected").Set(float64(tick.Detected))
	r.files.WithLabelValues("staged").Set(float64(tick.Staged))
	r.files.WithLabelValues("failed").Set(float64(tick.Failed))
	r.files.WithLabelValues("notified").Set(float64(tick.Notified))
	if tick.Kind != "" {
		r.notification.WithLabelValues(tick.Kind).Set(1)
	}
	r.tracked.Set(float64(tick.Tracked))
}

// Gatherer exposes the registry for inspection.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically replaces path with the current gauge values.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ppiankov/conative/internal/contract"
)

const namespace = "conative"

// Recorder collects gating metrics in its own registry. It implements
// contract.Observer and is safe for concurrent use.
type Recorder struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
	refusals  *prometheus.CounterVec
	duration  prometheus.Histogram
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		// Decisions tracks gating decisions by verdict
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "decisions_total",
				Help:      "Number of gating decisions by verdict",
			},
			[]string{"verdict"},
		),

		// Refusals tracks refusals by category and code
		refusals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "refusals_total",
				Help:      "Number of refusals by category and code",
			},
			[]string{"category", "code"},
		),

		// Duration tracks end-to-end evaluation latency
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent evaluating one gating request",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),
	}

	r.registry.MustRegister(r.decisions, r.refusals, r.duration)
	for _, v := range contract.Verdicts {
		r.decisions.WithLabelValues(string(v))
	}
	return r
}

// ObserveDecision records one decision.
func (r *Recorder) ObserveDecision(d *contract.Decision) {
	r.decisions.WithLabelValues(string(d.Verdict)).Inc()
	if d.Refusal != nil {
		r.refusals.WithLabelValues(string(d.Refusal.Category), d.Refusal.Code.Name()).Inc()
	}
	r.duration.Observe(float64(d.Processing.DurationUS) / 1e6)
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the Prometheus text format to path,
// creating the parent directory. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

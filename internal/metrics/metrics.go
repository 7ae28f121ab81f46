// Package metrics instruments runs and checks with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mdqengine/internal/model"
)

const namespace = "mdq"

// Recorder counts finished checks and runs. It satisfies engine.Observer.
type Recorder struct {
	registry      *prometheus.Registry
	checks        *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Checks evaluated, by suite and result status.",
		}, []string{"suite", "status"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "check_duration_seconds",
			Help:      "Time to evaluate one check, by result status.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 9),
		}, []string{"status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Suite runs, by suite and run status.",
		}, []string{"suite", "status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time to run a suite against one document.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}
	r.registry.MustRegister(r.checks, r.checkDuration, r.runs, r.runDuration)
	return r
}

func (r *Recorder) CheckFinished(suiteID string, res model.Result, d time.Duration) {
	r.checks.WithLabelValues(suiteID, string(res.Status)).Inc()
	r.checkDuration.WithLabelValues(string(res.Status)).Observe(d.Seconds())
}

func (r *Recorder) RunFinished(run *model.Run, d time.Duration) {
	r.runs.WithLabelValues(run.SuiteID, string(run.Status)).Inc()
	r.runDuration.Observe(d.Seconds())
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes every collected metric in the text exposition
// format, for the node exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

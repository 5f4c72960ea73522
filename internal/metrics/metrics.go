package metrics

import (
	"net/http"
	"time"

	"github.com/andresuchdata/controltower/backend-go/internal/domain"
	"github.com/andresuchdata/controltower/backend-go/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns the engine's collectors on a dedicated registry.
type Recorder struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	rowsWritten *prometheus.CounterVec
	truncations *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_engine_runs_total",
			Help: "Engine runs by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kpi_engine_run_duration_seconds",
			Help:    "Wall time of one engine run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_engine_rows_written_total",
			Help: "Snapshot rows written per output relation.",
		}, []string{"relation"}),
		truncations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kpi_engine_load_truncations_total",
			Help: "Input loads that stopped before the last page.",
		}, []string{"relation"}),
	}

	r.registry.MustRegister(
		r.runs,
		r.duration,
		r.rowsWritten,
		r.truncations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun records the outcome of one run.
func (r *Recorder) ObserveRun(result domain.RunResult, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(string(result.Status())).Inc()
	r.duration.Observe(elapsed.Seconds())
	r.rowsWritten.WithLabelValues(repository.DistortionTable.Name).Add(float64(result.IDIRows))
	r.rowsWritten.WithLabelValues(repository.CompletenessTable.Name).Add(float64(result.SCSRows))
	r.rowsWritten.WithLabelValues(repository.CurveHealthTable.Name).Add(float64(result.CHIRows))
	r.rowsWritten.WithLabelValues(repository.NetworkGapTable.Name).Add(float64(result.GapRows))
}

// ObserveTruncation counts an input relation whose paging stopped early.
func (r *Recorder) ObserveTruncation(relation string) {
	if r == nil {
		return
	}
	r.truncations.WithLabelValues(relation).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

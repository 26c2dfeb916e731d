// Package metrics exports pipeline and command counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appxzip"

// Recorder owns its registry so tests and multiple instances never collide
// on the global one. It satisfies pipeline.Observer.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Histogram
	stageDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
	commandsTotal *prometheus.CounterVec
	artifactBytes prometheus.Histogram
}

func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by outcome and failure kind.",
	}, []string{"outcome", "kind"})

	r.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_run_duration_seconds",
		Help:      "Wall time of whole pipeline runs.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	r.stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Wall time of completed pipeline stages.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	r.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_in_flight",
		Help:      "Pipeline runs currently executing.",
	})

	r.commandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Chat commands handled, by command and result.",
	}, []string{"command", "result"})

	r.artifactBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "artifact_size_bytes",
		Help:      "Size of delivered artifacts.",
		Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
	})

	r.registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.stageDuration,
		r.inFlight,
		r.commandsTotal,
		r.artifactBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) RunStarted() {
	r.inFlight.Inc()
}

func (r *Recorder) StageCompleted(stage string, took time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(took.Seconds())
}

func (r *Recorder) RunFinished(outcome, kind string, took time.Duration) {
	r.inFlight.Dec()
	r.runsTotal.WithLabelValues(outcome, kind).Inc()
	r.runDuration.Observe(took.Seconds())
}

// CommandHandled counts one chat command. result is a short label such as
// "ok", "rejected" or "failed".
func (r *Recorder) CommandHandled(command, result string) {
	r.commandsTotal.WithLabelValues(command, result).Inc()
}

func (r *Recorder) ArtifactDelivered(size int64) {
	r.artifactBytes.Observe(float64(size))
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

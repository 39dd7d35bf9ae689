// Package metrics exposes Prometheus instrumentation for LP solves, search
// trials and scenarios. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns an isolated registry and the diet optimizer collectors.
type Recorder struct {
	registry *prometheus.Registry

	solves        *prometheus.CounterVec
	solveDuration *prometheus.HistogramVec
	trials        *prometheus.CounterVec
	scenarios     *prometheus.CounterVec
}

// New builds a Recorder with Go runtime and process collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{registry: reg}

	r.solves = r.newCounterVec(prometheus.CounterOpts{
		Name: "diet_lp_solves_total",
		Help: "Total number of LP solves by backend and final status",
	}, []string{"backend", "status"})

	r.solveDuration = r.newHistogramVec(prometheus.HistogramOpts{
		Name:    "diet_lp_solve_duration_seconds",
		Help:    "LP solve latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"backend"})

	r.trials = r.newCounterVec(prometheus.CounterOpts{
		Name: "diet_trials_total",
		Help: "Diet model trials by result (feasible, infeasible)",
	}, []string{"result"})

	r.scenarios = r.newCounterVec(prometheus.CounterOpts{
		Name: "diet_scenarios_total",
		Help: "Scenarios processed by final search status",
	}, []string{"status"})

	return r
}

func (r *Recorder) newCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	r.registry.MustRegister(cv)
	return cv
}

func (r *Recorder) newHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	r.registry.MustRegister(hv)
	return hv
}

// ObserveSolve records one LP solve.
func (r *Recorder) ObserveSolve(backend, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.solves.WithLabelValues(backend, status).Inc()
	r.solveDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
}

// ObserveTrial records one diet model evaluation.
func (r *Recorder) ObserveTrial(feasible bool) {
	if r == nil {
		return
	}
	result := "infeasible"
	if feasible {
		result = "feasible"
	}
	r.trials.WithLabelValues(result).Inc()
}

// ObserveScenario records the outcome of one scenario.
func (r *Recorder) ObserveScenario(status string) {
	if r == nil {
		return
	}
	r.scenarios.WithLabelValues(status).Inc()
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns the HTTP handler exposing the registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Package metrics exposes the engine's Prometheus metrics via a private
// registry (rather than the global default one, so tests can construct
// their own).
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every series the engine records.
type Registry struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	JobsTotal           *prometheus.CounterVec
	JobDuration         *prometheus.HistogramVec
	ActiveJobs          prometheus.Gauge
	DBConnections       *prometheus.GaugeVec
	GAGenerations       *prometheus.HistogramVec
	SolutionFitness     *prometheus.GaugeVec
	CoverageRate        *prometheus.GaugeVec

	reg *prometheus.Registry
}

var (
	instance *Registry
	once     sync.Once
)

// Get returns the process-wide metrics registry, building it on first
// use.
func Get() *Registry {
	once.Do(func() {
		instance = newRegistry()
	})
	return instance
}

func newRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftopt_http_requests_total",
			Help: "Total HTTP requests served, by method/path/status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftopt_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path"}),
		JobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftopt_jobs_total",
			Help: "Total optimisation jobs run, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		JobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftopt_job_duration_seconds",
			Help:    "Optimisation job wall-clock duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 180, 600, 1800},
		}, []string{"operation"}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shiftopt_active_jobs",
			Help: "Optimisation jobs currently in flight.",
		}),
		DBConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftopt_db_connections",
			Help: "Job-history database connections, by state.",
		}, []string{"state"}),
		GAGenerations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftopt_ga_generations",
			Help:    "Generations run before a GA terminated, by component.",
			Buckets: []float64{10, 25, 50, 100, 150, 250, 500, 1000},
		}, []string{"component", "termination_reason"}),
		SolutionFitness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftopt_solution_fitness",
			Help: "Fitness score of the most recent incumbent, by operation.",
		}, []string{"operation"}),
		CoverageRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftopt_coverage_rate",
			Help: "Fraction of coverage rule/day slots satisfied exactly in the most recent result.",
		}, []string{"operation"}),
	}
}

// Handler returns the HTTP handler serving this registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordRequest records one HTTP request's outcome and latency.
func (r *Registry) RecordRequest(method, path string, status int, duration time.Duration) {
	statusLabel := statusBucket(status)
	r.HTTPRequestsTotal.WithLabelValues(method, path, statusLabel).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordJob records one completed optimisation job.
func (r *Registry) RecordJob(operation string, failed bool, duration time.Duration) {
	outcome := "success"
	if failed {
		outcome = "failed"
	}
	r.JobsTotal.WithLabelValues(operation, outcome).Inc()
	r.JobDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGATermination records how many generations a GA ran before
// stopping, and why.
func (r *Registry) RecordGATermination(component string, generations int, reason string) {
	r.GAGenerations.WithLabelValues(component, reason).Observe(float64(generations))
}

// SetSolutionFitness records the fitness of the most recent result for
// an operation.
func (r *Registry) SetSolutionFitness(operation string, fitness float64) {
	r.SolutionFitness.WithLabelValues(operation).Set(fitness)
}

// SetCoverageRate records the fraction of coverage rule/day slots
// satisfied exactly in the most recent result for an operation.
func (r *Registry) SetCoverageRate(operation string, rate float64) {
	r.CoverageRate.WithLabelValues(operation).Set(rate)
}

func statusBucket(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

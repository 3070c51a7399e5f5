package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters, histograms, and gauges for an
// assessment run.
type Metrics struct {
	FilesRead        prometheus.Counter
	SamplesExtracted prometheus.Counter
	SamplesDropped   prometheus.Counter

	RunsTotal   *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration prometheus.Histogram

	StageDuration *prometheus.HistogramVec // labels: stage

	// Result gauges carry the last run's headline numbers to the push
	// gateway alongside the counters.
	AEP          *prometheus.GaugeVec // labels: method
	WeibullShape prometheus.Gauge
	WeibullScale prometheus.Gauge
}

// NewMetrics creates and registers all assessment metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windresource",
			Name:      "files_read_total",
			Help:      "Total NetCDF input files read.",
		}),
		SamplesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windresource",
			Name:      "samples_extracted_total",
			Help:      "Total time steps extracted at the site location.",
		}),
		SamplesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windresource",
			Name:      "samples_dropped_total",
			Help:      "Total samples excluded from fitting (missing or calm).",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "windresource",
			Name:      "runs_total",
			Help:      "Completed assessment runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "windresource",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete assessment run.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "windresource",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		AEP: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "windresource",
			Name:      "aep_mwh",
			Help:      "Annual energy production estimate of the last run.",
		}, []string{"method"}),
		WeibullShape: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "windresource",
			Name:      "weibull_shape",
			Help:      "Fitted Weibull shape parameter of the last run.",
		}),
		WeibullScale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "windresource",
			Name:      "weibull_scale_ms",
			Help:      "Fitted Weibull scale parameter of the last run in m/s.",
		}),
	}

	prometheus.MustRegister(
		m.FilesRead,
		m.SamplesExtracted,
		m.SamplesDropped,
		m.RunsTotal,
		m.RunDuration,
		m.StageDuration,
		m.AEP,
		m.WeibullShape,
		m.WeibullScale,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesRead:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windresource", Name: "files_read_total"}),
		SamplesExtracted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windresource", Name: "samples_extracted_total"}),
		SamplesDropped:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windresource", Name: "samples_dropped_total"}),
		RunsTotal:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "windresource", Name: "runs_total"}, []string{"outcome"}),
		RunDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "windresource", Name: "run_duration_seconds"}),
		StageDuration:    prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "windresource", Name: "stage_duration_seconds"}, []string{"stage"}),
		AEP:              prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "windresource", Name: "aep_mwh"}, []string{"method"}),
		WeibullShape:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "windresource", Name: "weibull_shape"}),
		WeibullScale:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "windresource", Name: "weibull_scale_ms"}),
	}
}

// PushToGateway pushes all registered metrics to a Prometheus
// Pushgateway, grouped by run ID. An assessment run exits as soon as it
// finishes, so its metrics cannot be scraped.
func PushToGateway(url, runID string, timeout time.Duration) error {
	return push.New(url, "windassess").
		Grouping("run_id", runID).
		Gatherer(prometheus.DefaultGatherer).
		Client(&http.Client{Timeout: timeout}).
		Push()
}

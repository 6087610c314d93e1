package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles         prometheus.Counter
	cycleSymbols   prometheus.Histogram
	cycleDuration  prometheus.Histogram
	symbolResults  *prometheus.CounterVec
	rejections     *prometheus.CounterVec
	signalsEmitted *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the recorder on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "finsignal_cycles_total",
			Help: "Total number of generation cycles run",
		}),
		cycleSymbols: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finsignal_cycle_symbols",
			Help:    "Symbols evaluated per cycle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "finsignal_cycle_duration_seconds",
			Help:    "Wall time of a generation cycle",
			Buckets: prometheus.DefBuckets,
		}),
		symbolResults: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_symbol_results_total",
			Help: "Per-symbol pipeline results by kind",
		}, []string{"result"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_rejections_total",
			Help: "Setups rejected by stage",
		}, []string{"stage"}),
		signalsEmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_signals_emitted_total",
			Help: "Ranked signals written to a sink",
		}, []string{"sink"}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_backtest_outcomes_total",
			Help: "Backtest outcomes by status",
		}, []string{"status"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "finsignal_errors_total",
			Help: "Total number of errors encountered",
		}, []string{"type"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "finsignal_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

// RecordCycle records one completed generation cycle.
func (r *Recorder) RecordCycle(symbols int, seconds float64) {
	r.cycles.Inc()
	r.cycleSymbols.Observe(float64(symbols))
	r.cycleDuration.Observe(seconds)
}

func (r *Recorder) RecordSymbolResult(result string) {
	r.symbolResults.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordRejection(stage string) {
	r.rejections.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordSignalsEmitted(sink string, n int) {
	r.signalsEmitted.WithLabelValues(sink).Add(float64(n))
}

func (r *Recorder) RecordOutcome(status string) {
	r.outcomes.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

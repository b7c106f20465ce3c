package metrics

import (
	"errors"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	phaseDuration   *prom.HistogramVec
	phaseResults    *prom.CounterVec
	packageDuration prom.Histogram
}

// NewPrometheusRecorder constructs the packaging metrics and registers them
// on reg. Collectors already present on the registry are reused, so
// repeated construction against a shared registry is safe.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	return &PrometheusRecorder{
		phaseDuration: register(reg, prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "agentci",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual packaging phases",
			Buckets:   prom.DefBuckets,
		}, []string{"phase"})),
		phaseResults: register(reg, prom.NewCounterVec(prom.CounterOpts{
			Namespace: "agentci",
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"phase", "result"})),
		packageDuration: register(reg, prom.NewHistogram(prom.HistogramOpts{
			Namespace: "agentci",
			Name:      "package_duration_seconds",
			Help:      "Total packaging duration",
			Buckets:   prom.DefBuckets,
		})),
	}
}

// register adds c to reg, returning the already-registered collector
// instead when one with the same descriptor exists.
func register[C prom.Collector](reg prom.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prom.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(C)
		}
		panic(err)
	}
	return c
}

func (p *PrometheusRecorder) ObservePhaseDuration(phase string, d time.Duration) {
	if p == nil || p.phaseDuration == nil {
		return
	}
	p.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(phase string, result ResultLabel) {
	if p == nil || p.phaseResults == nil {
		return
	}
	p.phaseResults.WithLabelValues(phase, string(result)).Inc()
}

func (p *PrometheusRecorder) ObservePackageDuration(d time.Duration) {
	if p == nil || p.packageDuration == nil {
		return
	}
	p.packageDuration.Observe(d.Seconds())
}

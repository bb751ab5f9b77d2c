package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

// PromObs logs through slog and records metrics in Prometheus.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the pipeline metrics on reg. A nil logger discards logs.
func NewPromObs(logger *slog.Logger, reg prometheus.Registerer) *PromObs {
	if logger == nil {
		logger = Discard()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	forwarded := counter(ports.MetricForwarded, "Stations whose latest reading was accepted by the ingestion API.")
	dryRun := counter(ports.MetricDryRun, "Stations whose reading would have been forwarded in dry-run mode.")
	noData := counter(ports.MetricNoData, "Stations for which the query returned no reading.")
	duplicate := counter(ports.MetricDuplicate, "Stations whose latest reading was already in the ledger.")
	failed := counter(ports.MetricFailed, "Stations that failed in any stage.")
	cycles := counter(ports.MetricCycles, "Completed synchronization cycles.")

	lastFailed := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricLastCycleFailed,
		Help: "Failed stations in the most recent cycle.",
	})
	lastTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricLastCycleTime,
		Help: "Unix time at which the most recent cycle finished.",
	})
	cycleDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricCycleDuration,
		Help:    "Wall time of one pass over all stations.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
	forwardLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricForwardLatency,
		Help:    "Latency of successful calls to the ingestion API.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	if reg != nil {
		reg.MustRegister(forwarded, dryRun, noData, duplicate, failed, cycles,
			lastFailed, lastTime, cycleDuration, forwardLatency)
	}

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricForwarded: forwarded,
			ports.MetricDryRun:    dryRun,
			ports.MetricNoData:    noData,
			ports.MetricDuplicate: duplicate,
			ports.MetricFailed:    failed,
			ports.MetricCycles:    cycles,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricLastCycleFailed: lastFailed,
			ports.MetricLastCycleTime:   lastTime,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricCycleDuration:  cycleDuration,
			ports.MetricForwardLatency: forwardLatency,
		},
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.logger.Debug(msg, attrs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

// LogCritical is for faults that put the ledger invariant at risk.
func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Log(context.Background(), LevelCritical, msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)

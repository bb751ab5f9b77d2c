package ports

// Metric names recorded through Observability.
const (
	MetricForwarded       = "lindas_stations_forwarded_total"
	MetricDryRun          = "lindas_stations_dry_run_total"
	MetricNoData          = "lindas_stations_no_data_total"
	MetricDuplicate       = "lindas_stations_duplicate_total"
	MetricFailed          = "lindas_stations_failed_total"
	MetricCycles          = "lindas_cycles_total"
	MetricCycleDuration   = "lindas_cycle_duration_seconds"
	MetricForwardLatency  = "lindas_forward_latency_seconds"
	MetricLastCycleFailed = "lindas_last_cycle_failed_stations"
	MetricLastCycleTime   = "lindas_last_cycle_timestamp_seconds"
)

type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

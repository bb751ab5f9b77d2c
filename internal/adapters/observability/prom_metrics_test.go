package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(nil, reg)

	obs.IncCounter(ports.MetricForwarded, 2)
	if got := testutil.ToFloat64(obs.counters[ports.MetricForwarded]); got != 2 {
		t.Fatalf("expected forwarded counter 2, got %f", got)
	}

	obs.IncCounter(ports.MetricFailed, 1)
	if got := testutil.ToFloat64(obs.counters[ports.MetricFailed]); got != 1 {
		t.Fatalf("expected failed counter 1, got %f", got)
	}

	obs.SetGauge(ports.MetricLastCycleFailed, 3)
	if got := testutil.ToFloat64(obs.gauges[ports.MetricLastCycleFailed]); got != 3 {
		t.Fatalf("expected last cycle gauge 3, got %f", got)
	}

	obs.ObserveLatency(ports.MetricForwardLatency, 0.25)
	hCollector := obs.histos[ports.MetricForwardLatency].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	// unknown names are ignored
	obs.IncCounter("nope", 1)
	obs.SetGauge("nope", 1)

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("expected registered metrics, got %d err=%v", n, err)
	}
}

func TestPromObsLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", "text")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	obs := NewPromObs(logger, nil)

	obs.LogDebug("hidden")
	obs.LogInfo("station_forwarded", ports.Field{Key: "station_id", Value: 2104})
	obs.LogCritical("ledger_commit_failed", errors.New("constraint"), ports.Field{Key: "sensor_id", Value: 1})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line must be filtered at info level: %s", out)
	}
	if !strings.Contains(out, "station_id=2104") {
		t.Fatalf("expected field in output: %s", out)
	}
	if !strings.Contains(out, "level=CRITICAL") || !strings.Contains(out, "error=constraint") {
		t.Fatalf("expected critical line with error: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"trace", "debug", "info", "INFO", "warn", "error", ""} {
		if _, err := ParseLevel(lvl); err != nil {
			t.Fatalf("level %q: %v", lvl, err)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected invalid level to fail")
	}
	if _, err := NewLogger(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Fatalf("expected invalid format to fail")
	}
}

package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

type mockQuery struct {
	readings map[uint32]*domain.Measurement
	errs     map[uint32]error
	calls    []uint32
}

func (q *mockQuery) LatestMeasurement(_ context.Context, stationID uint32) (*domain.Measurement, error) {
	q.calls = append(q.calls, stationID)
	if err := q.errs[stationID]; err != nil {
		return nil, err
	}
	return q.readings[stationID], nil
}

type mockResolver map[uint32]uint32

func (r mockResolver) SensorFor(stationID uint32) (uint32, bool) {
	id, ok := r[stationID]
	return id, ok
}

type mockLedger struct {
	sent      map[[2]int64]bool
	hasErr    error
	recordErr error
	records   int
}

func newMockLedger() *mockLedger {
	return &mockLedger{sent: map[[2]int64]bool{}}
}

func (l *mockLedger) key(sensorID uint32, at time.Time) [2]int64 {
	s, ts := domain.LedgerKey(sensorID, at)
	return [2]int64{int64(s), ts}
}

func (l *mockLedger) HasBeenSent(_ context.Context, sensorID uint32, at time.Time) (bool, error) {
	if l.hasErr != nil {
		return false, l.hasErr
	}
	return l.sent[l.key(sensorID, at)], nil
}

func (l *mockLedger) RecordSent(_ context.Context, sensorID uint32, at time.Time) error {
	l.records++
	if l.recordErr != nil {
		return l.recordErr
	}
	k := l.key(sensorID, at)
	if l.sent[k] {
		return domain.ErrAlreadyRecorded
	}
	l.sent[k] = true
	return nil
}

func (l *mockLedger) Close() error { return nil }

type forwarded struct {
	sensorID uint32
	m        domain.Measurement
}

type mockForwarder struct {
	// failures are consumed in order; nil entries succeed.
	failures []error
	sent     []forwarded
	calls    int
}

func (f *mockForwarder) Forward(_ context.Context, m *domain.Measurement, sensorID uint32) error {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, forwarded{sensorID: sensorID, m: *m})
	return nil
}

func (f *mockForwarder) Name() string { return "mock" }

type mockObs struct {
	mu        sync.Mutex
	infos     []string
	errors    []error
	criticals []error
	counters  map[string]float64
	gauges    map[string]float64
	latencies map[string]int
}

func newMockObs() *mockObs {
	return &mockObs{
		counters:  map[string]float64{},
		gauges:    map[string]float64{},
		latencies: map[string]int{},
	}
}

func (m *mockObs) LogDebug(string, ...ports.Field) {}

func (m *mockObs) LogInfo(msg string, _ ...ports.Field) {
	m.mu.Lock()
	m.infos = append(m.infos, msg)
	m.mu.Unlock()
}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	m.errors = append(m.errors, err)
	m.mu.Unlock()
}

func (m *mockObs) LogCritical(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	m.criticals = append(m.criticals, err)
	m.mu.Unlock()
}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	m.counters[name] += v
	m.mu.Unlock()
}

func (m *mockObs) ObserveLatency(name string, _ float64) {
	m.mu.Lock()
	m.latencies[name]++
	m.mu.Unlock()
}

func (m *mockObs) SetGauge(name string, v float64) {
	m.mu.Lock()
	m.gauges[name] = v
	m.mu.Unlock()
}

func (m *mockObs) hasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.infos {
		if s == msg {
			return true
		}
	}
	return false
}

func reading(stationID uint32, unix int64, temp float64) *domain.Measurement {
	return &domain.Measurement{
		StationID:   stationID,
		StationName: "Station",
		Time:        time.Unix(unix, 0).UTC(),
		Temperature: temp,
	}
}

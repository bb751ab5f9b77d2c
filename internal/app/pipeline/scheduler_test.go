package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

func TestRunCycleIsolatesFailures(t *testing.T) {
	q := &mockQuery{
		readings: map[uint32]*domain.Measurement{
			2104: reading(2104, 1717228800, 17.3),
			2135: reading(2135, 1717228800, 15.1),
		},
		errs: map[uint32]error{2030: errors.New("connection refused")},
	}
	led := newMockLedger()
	fwd := &mockForwarder{}
	obs := newMockObs()
	res := mockResolver{2104: 1, 2030: 2, 2135: 3}

	proc := NewStationProcessor(q, res, led, fwd, obs, false)
	s := NewScheduler(proc, []uint32{2104, 2030, 2135}, ports.Schedule{Mode: "oneshot"}, obs)

	out := s.RunCycle(context.Background())

	if out.Forwarded != 2 || out.Failed != 1 {
		t.Fatalf("expected 2 forwarded and 1 failed, got %+v", out)
	}
	if len(q.calls) != 3 || q.calls[0] != 2104 || q.calls[1] != 2030 || q.calls[2] != 2135 {
		t.Fatalf("expected stations in config order, got %v", q.calls)
	}
	if obs.counters[ports.MetricForwarded] != 2 || obs.counters[ports.MetricFailed] != 1 {
		t.Fatalf("unexpected counters: %v", obs.counters)
	}
	if obs.gauges[ports.MetricLastCycleFailed] != 1 {
		t.Fatalf("expected failed gauge 1, got %v", obs.gauges[ports.MetricLastCycleFailed])
	}
	if out.CycleID == "" {
		t.Fatalf("expected a cycle id")
	}
	last, ok := s.LastOutcome()
	if !ok || last.CycleID != out.CycleID {
		t.Fatalf("expected last outcome to be recorded")
	}
}

func TestRunOneshotReportsFailures(t *testing.T) {
	q := &mockQuery{errs: map[uint32]error{2104: errors.New("timeout")}}
	obs := newMockObs()
	proc := NewStationProcessor(q, mockResolver{2104: 1}, newMockLedger(), &mockForwarder{}, obs, false)
	s := NewScheduler(proc, []uint32{2104}, ports.Schedule{Mode: "oneshot"}, obs)

	if err := s.Run(context.Background()); !errors.Is(err, ErrStationsFailed) {
		t.Fatalf("expected ErrStationsFailed, got %v", err)
	}
}

func TestRunOneshotSucceeds(t *testing.T) {
	q := &mockQuery{readings: map[uint32]*domain.Measurement{2104: reading(2104, 1717228800, 17.3)}}
	obs := newMockObs()
	proc := NewStationProcessor(q, mockResolver{2104: 1}, newMockLedger(), &mockForwarder{}, obs, false)
	s := NewScheduler(proc, []uint32{2104}, ports.Schedule{Mode: "oneshot"}, obs)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.LastOutcome(); !ok {
		t.Fatalf("expected an outcome after a run")
	}
}

func TestRunLoopSleepsBetweenCycles(t *testing.T) {
	// every station has nothing new, so no cycle succeeds
	q := &mockQuery{}
	obs := newMockObs()
	proc := NewStationProcessor(q, mockResolver{2104: 1}, newMockLedger(), &mockForwarder{}, obs, false)
	s := NewScheduler(proc, []uint32{2104}, ports.Schedule{Mode: "loop", Interval: time.Minute}, obs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sleeps []time.Duration
	s.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) == 2 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	if err := s.Run(ctx); err != nil {
		t.Fatalf("loop should stop cleanly, got %v", err)
	}
	if len(q.calls) != 2 {
		t.Fatalf("expected two cycles, got %d", len(q.calls))
	}
	if sleeps[0] != time.Minute {
		t.Fatalf("expected a 60s sleep, got %v", sleeps[0])
	}
	if obs.counters[ports.MetricCycles] != 2 {
		t.Fatalf("expected two recorded cycles, got %v", obs.counters[ports.MetricCycles])
	}
	last, _ := s.LastOutcome()
	if last.Succeeded() != 0 || last.NoData != 1 {
		t.Fatalf("expected zero successes, got %+v", last)
	}
}

func TestRunCycleStopsOnCancelledContext(t *testing.T) {
	q := &mockQuery{}
	obs := newMockObs()
	proc := NewStationProcessor(q, mockResolver{}, newMockLedger(), &mockForwarder{}, obs, false)
	s := NewScheduler(proc, []uint32{1, 2, 3}, ports.Schedule{Mode: "loop", Interval: time.Minute}, obs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(q.calls) != 0 {
		t.Fatalf("expected no station to be queried, got %v", q.calls)
	}
}

func TestRunUnknownMode(t *testing.T) {
	s := NewScheduler(nil, nil, ports.Schedule{Mode: "cron"}, newMockObs())
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

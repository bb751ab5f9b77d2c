package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

// ErrStationsFailed is returned by a oneshot run when any station failed.
var ErrStationsFailed = errors.New("one or more stations failed")

// StationRunner processes a single station.
type StationRunner interface {
	Process(ctx context.Context, stationID uint32) domain.StationResult
}

// Scheduler drives cycles over the configured stations.
type Scheduler struct {
	runner   StationRunner
	stations []uint32
	schedule ports.Schedule
	obs      ports.Observability

	// Sleep waits between loop cycles. It returns early with ctx.Err()
	// when the context ends.
	Sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu   sync.Mutex
	last *domain.CycleOutcome
}

func NewScheduler(runner StationRunner, stations []uint32, schedule ports.Schedule, obs ports.Observability) *Scheduler {
	return &Scheduler{
		runner:   runner,
		stations: append([]uint32(nil), stations...),
		schedule: schedule,
		obs:      obs,
		Sleep:    sleepContext,
		now:      time.Now,
	}
}

// Run executes one cycle in oneshot mode, or cycles until ctx is cancelled in
// loop mode.
func (s *Scheduler) Run(ctx context.Context) error {
	switch s.schedule.Mode {
	case "", "oneshot":
		out := s.RunCycle(ctx)
		if out.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", ErrStationsFailed, out.Failed, out.Stations())
		}
		return nil
	case "loop":
		return s.loop(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", s.schedule.Mode)
	}
}

func (s *Scheduler) loop(ctx context.Context) error {
	s.obs.LogInfo("loop_started",
		ports.Field{Key: "interval", Value: s.schedule.Interval.String()},
		ports.Field{Key: "stations", Value: len(s.stations)})

	for {
		s.RunCycle(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.obs.LogDebug("loop_sleeping", ports.Field{Key: "interval", Value: s.schedule.Interval.String()})
		if err := s.Sleep(ctx, s.schedule.Interval); err != nil {
			s.obs.LogInfo("loop_stopped")
			return nil
		}
	}
}

// RunCycle processes every station once, in order. A failing station never
// stops the remaining ones; only a cancelled context ends the cycle early.
func (s *Scheduler) RunCycle(ctx context.Context) domain.CycleOutcome {
	out := domain.CycleOutcome{
		CycleID:   uuid.NewString(),
		StartedAt: s.now(),
	}

	s.obs.LogInfo("cycle_started",
		ports.Field{Key: "cycle_id", Value: out.CycleID},
		ports.Field{Key: "stations", Value: len(s.stations)},
		ports.Field{Key: "dry_run", Value: s.schedule.DryRun})

	for _, id := range s.stations {
		if ctx.Err() != nil {
			s.obs.LogInfo("cycle_interrupted", ports.Field{Key: "cycle_id", Value: out.CycleID})
			break
		}
		res := s.runner.Process(ctx, id)
		out.Add(res)
		s.obs.IncCounter(statusMetric(res.Status), 1)
	}

	out.Duration = s.now().Sub(out.StartedAt)
	s.record(out)
	return out
}

// LastOutcome returns the outcome of the latest completed cycle.
func (s *Scheduler) LastOutcome() (domain.CycleOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.CycleOutcome{}, false
	}
	return *s.last, true
}

func (s *Scheduler) record(out domain.CycleOutcome) {
	s.mu.Lock()
	s.last = &out
	s.mu.Unlock()

	s.obs.IncCounter(ports.MetricCycles, 1)
	s.obs.ObserveLatency(ports.MetricCycleDuration, out.Duration.Seconds())
	s.obs.SetGauge(ports.MetricLastCycleFailed, float64(out.Failed))
	s.obs.SetGauge(ports.MetricLastCycleTime, float64(out.StartedAt.Add(out.Duration).Unix()))

	fields := []ports.Field{
		{Key: "cycle_id", Value: out.CycleID},
		{Key: "succeeded", Value: out.Succeeded()},
		{Key: "failed", Value: out.Failed},
		{Key: "duplicates", Value: out.Duplicates},
		{Key: "no_data", Value: out.NoData},
		{Key: "duration", Value: out.Duration.String()},
	}
	if out.Failed > 0 {
		s.obs.LogError("cycle_finished_with_failures", fmt.Errorf("%d station(s) failed", out.Failed), fields...)
		return
	}
	s.obs.LogInfo("cycle_finished", fields...)
}

func statusMetric(st domain.StationStatus) string {
	switch st {
	case domain.StatusForwarded:
		return ports.MetricForwarded
	case domain.StatusDryRun:
		return ports.MetricDryRun
	case domain.StatusNoData:
		return ports.MetricNoData
	case domain.StatusDuplicate:
		return ports.MetricDuplicate
	default:
		return ports.MetricFailed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

// StationProcessor runs Fetch → Resolve → Dedup → Forward → Commit for one
// station. The ledger is written only after the forwarder confirmed success.
type StationProcessor struct {
	query     ports.QueryExecutor
	resolver  ports.SensorResolver
	ledger    ports.Ledger
	forwarder ports.Forwarder
	obs       ports.Observability
	dryRun    bool
}

func NewStationProcessor(q ports.QueryExecutor, r ports.SensorResolver, l ports.Ledger, f ports.Forwarder, obs ports.Observability, dryRun bool) *StationProcessor {
	return &StationProcessor{
		query:     q,
		resolver:  r,
		ledger:    l,
		forwarder: f,
		obs:       obs,
		dryRun:    dryRun,
	}
}

func (p *StationProcessor) Process(ctx context.Context, stationID uint32) domain.StationResult {
	res := domain.StationResult{StationID: stationID}

	m, err := p.query.LatestMeasurement(ctx, stationID)
	if err != nil {
		return p.fail(res, domain.StageFetch, err)
	}
	if m == nil {
		res.Status = domain.StatusNoData
		p.obs.LogInfo("station_no_data", ports.Field{Key: "station_id", Value: stationID})
		return res
	}
	res.Measurement = m

	sensorID, ok := p.resolver.SensorFor(m.StationID)
	if !ok {
		return p.fail(res, domain.StageResolve, domain.ErrNoSensorMapping)
	}
	res.SensorID = sensorID

	fields := measurementFields(m, sensorID)

	sent, err := p.ledger.HasBeenSent(ctx, sensorID, m.Time)
	if err != nil {
		return p.fail(res, domain.StageDedup, err)
	}
	if sent {
		res.Status = domain.StatusDuplicate
		p.obs.LogDebug("station_duplicate", fields...)
		return res
	}

	if p.dryRun {
		res.Status = domain.StatusDryRun
		p.obs.LogInfo("station_would_forward", append(fields, ports.Field{Key: "forwarder", Value: p.forwarder.Name()})...)
		return res
	}

	start := time.Now()
	if err := p.forwarder.Forward(ctx, m, sensorID); err != nil {
		return p.fail(res, domain.StageForward, err)
	}
	p.obs.ObserveLatency(ports.MetricForwardLatency, time.Since(start).Seconds())

	if err := p.ledger.RecordSent(ctx, sensorID, m.Time); err != nil {
		return p.fail(res, domain.StageCommit, err)
	}

	res.Status = domain.StatusForwarded
	p.obs.LogInfo("station_forwarded", fields...)
	return res
}

func (p *StationProcessor) fail(res domain.StationResult, stage domain.Stage, err error) domain.StationResult {
	res.Status = domain.StatusFailed
	res.Err = &domain.StationError{
		StationID: res.StationID,
		SensorID:  res.SensorID,
		Stage:     stage,
		Err:       err,
	}

	fields := []ports.Field{
		{Key: "station_id", Value: res.StationID},
		{Key: "stage", Value: string(stage)},
	}
	if res.SensorID != 0 {
		fields = append(fields, ports.Field{Key: "sensor_id", Value: res.SensorID})
	}
	var se *domain.StatusError
	if errors.As(err, &se) {
		fields = append(fields,
			ports.Field{Key: "http_status", Value: se.StatusCode},
			ports.Field{Key: "http_body", Value: se.Body})
	}

	if stage == domain.StageCommit {
		// the downstream API has the reading but the ledger does not
		p.obs.LogCritical("ledger_commit_failed", err, fields...)
	} else {
		p.obs.LogError("station_failed", err, fields...)
	}
	return res
}

func measurementFields(m *domain.Measurement, sensorID uint32) []ports.Field {
	return []ports.Field{
		{Key: "station_id", Value: m.StationID},
		{Key: "station_name", Value: m.StationName},
		{Key: "sensor_id", Value: sensorID},
		{Key: "time", Value: m.Time.Format(time.RFC3339)},
		{Key: "temperature", Value: m.Temperature},
	}
}

package lindasfetcher

import (
	"github.com/gfroerli/lindas-foen-fetcher/internal/app/pipeline"
	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

// Measurement is the latest reading of one station.
type Measurement = domain.Measurement

// CycleOutcome summarizes one pass over all stations.
type CycleOutcome = domain.CycleOutcome

// StationResult is the per-station result inside a cycle.
type StationResult = domain.StationResult

// StationError attributes a failure to a station, sensor and stage.
type StationError = domain.StationError

// StatusError is a non-2xx answer from a remote endpoint.
type StatusError = domain.StatusError

// QueryExecutor fetches the latest measurement of a station.
type QueryExecutor = ports.QueryExecutor

// Ledger remembers which readings were accepted downstream.
type Ledger = ports.Ledger

// Forwarder delivers a measurement to the downstream API.
type Forwarder = ports.Forwarder

// Observability emits logs and metrics for the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

var (
	// ErrStationsFailed is returned by a oneshot run with at least one failed station.
	ErrStationsFailed = pipeline.ErrStationsFailed
	// ErrAlreadyRecorded is returned by a ledger on a duplicate insert.
	ErrAlreadyRecorded = domain.ErrAlreadyRecorded
	// ErrNoSensorMapping marks a station without configured sensor.
	ErrNoSensorMapping = domain.ErrNoSensorMapping
)

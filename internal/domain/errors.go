package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSensorMapping is returned when a station has no configured sensor.
	ErrNoSensorMapping = errors.New("no sensor mapping for station")
	// ErrAlreadyRecorded is returned by the ledger when the key already exists.
	ErrAlreadyRecorded = errors.New("measurement already recorded")
)

// Stage names the step of the station state machine that failed.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageResolve Stage = "resolve"
	StageDedup   Stage = "dedup"
	StageForward Stage = "forward"
	StageCommit  Stage = "commit"
)

// StatusError is a non-2xx answer from a remote endpoint. Body is kept
// verbatim for diagnostics.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// StationError attributes a failure to a station and, once resolved, a sensor.
type StationError struct {
	StationID uint32
	SensorID  uint32
	Stage     Stage
	Err       error
}

func (e *StationError) Error() string {
	if e.SensorID != 0 {
		return fmt.Sprintf("station %d (sensor %d): %s: %v", e.StationID, e.SensorID, e.Stage, e.Err)
	}
	return fmt.Sprintf("station %d: %s: %v", e.StationID, e.Stage, e.Err)
}

func (e *StationError) Unwrap() error { return e.Err }

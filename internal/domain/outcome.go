package domain

import "time"

// StationStatus is the terminal state of one station in one cycle.
type StationStatus string

const (
	StatusForwarded StationStatus = "forwarded"
	StatusDryRun    StationStatus = "dry_run"
	StatusNoData    StationStatus = "no_data"
	StatusDuplicate StationStatus = "duplicate"
	StatusFailed    StationStatus = "failed"
)

// StationResult is what the station processor reports for a station.
type StationResult struct {
	StationID   uint32
	SensorID    uint32
	Status      StationStatus
	Measurement *Measurement
	Err         error
}

// CycleOutcome aggregates the station results of one scheduler pass.
type CycleOutcome struct {
	CycleID    string        `json:"cycle_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Forwarded  int           `json:"forwarded"`
	DryRun     int           `json:"dry_run"`
	NoData     int           `json:"no_data"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
}

// Add folds a station result into the aggregate.
func (o *CycleOutcome) Add(r StationResult) {
	switch r.Status {
	case StatusForwarded:
		o.Forwarded++
	case StatusDryRun:
		o.DryRun++
	case StatusNoData:
		o.NoData++
	case StatusDuplicate:
		o.Duplicates++
	default:
		o.Failed++
	}
}

// Succeeded counts stations whose reading was handed to the forwarder,
// or would have been in a dry run.
func (o CycleOutcome) Succeeded() int { return o.Forwarded + o.DryRun }

// Stations is the number of stations visited in the cycle.
func (o CycleOutcome) Stations() int {
	return o.Forwarded + o.DryRun + o.NoData + o.Duplicates + o.Failed
}

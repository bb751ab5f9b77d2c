package domain

import "time"

// Measurement is the latest water temperature reading of a FOEN station.
type Measurement struct {
	StationID   uint32    `json:"station_id"`
	StationName string    `json:"station_name"`
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"`
}

// LedgerEntry records that a reading was accepted by the ingestion API.
// MeasurementTime is kept at second resolution.
type LedgerEntry struct {
	SensorID        uint32
	MeasurementTime time.Time
	SentAt          time.Time
}

// LedgerKey returns the dedup key for a reading: the sensor and the
// measurement instant truncated to whole seconds.
func LedgerKey(sensorID uint32, t time.Time) (uint32, int64) {
	return sensorID, t.Unix()
}

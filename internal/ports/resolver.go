package ports

// SensorResolver maps a FOEN station to the Gfrörli sensor it feeds.
type SensorResolver interface {
	SensorFor(stationID uint32) (uint32, bool)
}

package ports

import (
	"context"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
)

// QueryExecutor fetches the latest reading of a station. A nil measurement
// with a nil error means the station has no data.
type QueryExecutor interface {
	LatestMeasurement(ctx context.Context, stationID uint32) (*domain.Measurement, error)
}

package ports

import (
	"context"
	"time"
)

// Ledger is the durable set of (sensor, instant) pairs already forwarded.
type Ledger interface {
	HasBeenSent(ctx context.Context, sensorID uint32, at time.Time) (bool, error)
	RecordSent(ctx context.Context, sensorID uint32, at time.Time) error
	Close() error
}

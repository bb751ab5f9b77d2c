package ports

import (
	"context"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
)

type Forwarder interface {
	Forward(ctx context.Context, m *domain.Measurement, sensorID uint32) error
	Name() string
}

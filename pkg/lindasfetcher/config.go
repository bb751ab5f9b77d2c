package lindasfetcher

import (
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/gfroerli"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/ledger"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/sparql"
	"github.com/gfroerli/lindas-foen-fetcher/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// LoggingConfig selects level and handler format.
	LoggingConfig = config.LoggingConfig
	// DatabaseConfig selects the ledger driver and location.
	DatabaseConfig = ledger.Config
	// RunConfig selects oneshot or loop scheduling.
	RunConfig = config.RunConfig
	// SPARQLConfig points at the LINDAS query endpoint.
	SPARQLConfig = sparql.Config
	// MetricsConfig configures the status server.
	MetricsConfig = config.MetricsConfig
	// GfroerliConfig points at the ingestion API.
	GfroerliConfig = gfroerli.Config
	// StationConfig maps one FOEN station to one Gfrörli sensor.
	StationConfig = config.StationConfig
)

const (
	ModeOneshot = config.ModeOneshot
	ModeLoop    = config.ModeLoop
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = config.ErrInvalid

// LoadConfig reads TOML (or YAML for .yaml/.yml) from disk, applies defaults
// and validates.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

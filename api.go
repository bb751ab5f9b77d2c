package lindasfetcher

import (
	"log/slog"
	"net/http"

	base "github.com/gfroerli/lindas-foen-fetcher/pkg/lindasfetcher"
)

// Re-exported errors for convenience.
var (
	ErrStationsFailed  = base.ErrStationsFailed
	ErrAlreadyRecorded = base.ErrAlreadyRecorded
	ErrNoSensorMapping = base.ErrNoSensorMapping
	ErrInvalidConfig   = base.ErrInvalidConfig
)

const (
	ModeOneshot = base.ModeOneshot
	ModeLoop    = base.ModeLoop
)

// Type aliases so consumers can import github.com/gfroerli/lindas-foen-fetcher directly.
type (
	Config          = base.Config
	LoggingConfig   = base.LoggingConfig
	DatabaseConfig  = base.DatabaseConfig
	RunConfig       = base.RunConfig
	SPARQLConfig    = base.SPARQLConfig
	MetricsConfig   = base.MetricsConfig
	GfroerliConfig  = base.GfroerliConfig
	StationConfig   = base.StationConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	StreamInOption  = base.StreamInOption
	StreamOutOption = base.StreamOutOption
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Measurement     = base.Measurement
	CycleOutcome    = base.CycleOutcome
	StationResult   = base.StationResult
	StationError    = base.StationError
	StatusError     = base.StatusError
	QueryExecutor   = base.QueryExecutor
	Ledger          = base.Ledger
	Forwarder       = base.Forwarder
	ForwardFunc     = base.ForwardFunc
	Observability   = base.Observability
	Field           = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInQuery(q QueryExecutor) StreamInOption {
	return base.StreamInQuery(q)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutForwarder(f Forwarder) StreamOutOption {
	return base.StreamOutForwarder(f)
}

func StreamOutLedger(l Ledger) StreamOutOption {
	return base.StreamOutLedger(l)
}

func StreamOutDryRun() StreamOutOption {
	return base.StreamOutDryRun()
}

func StreamOutCallback(name string, fn ForwardFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithQueryExecutor(q QueryExecutor) RuntimeOption {
	return base.WithQueryExecutor(q)
}

func WithLedger(l Ledger) RuntimeOption {
	return base.WithLedger(l)
}

func WithForwarder(f Forwarder) RuntimeOption {
	return base.WithForwarder(f)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithLogger(l *slog.Logger) RuntimeOption {
	return base.WithLogger(l)
}

func WithHTTPClient(c *http.Client) RuntimeOption {
	return base.WithHTTPClient(c)
}

func WithDryRun(dryRun bool) RuntimeOption {
	return base.WithDryRun(dryRun)
}

// Forwarder adapters.
func NewCallbackForwarder(name string, fn ForwardFunc) Forwarder {
	return base.NewCallbackForwarder(name, fn)
}

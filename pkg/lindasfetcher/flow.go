package lindasfetcher

import (
	"context"
	"fmt"
)

// Flow builds a Runtime in reading order: where readings are fetched from
// (StreamIN), then where they are delivered and remembered (StreamOUT).
//
//	flow, _ := lindasfetcher.Conf("config.toml")
//	err := flow.StreamIN(StreamInQuery(q)).Run(ctx, StreamOutDryRun())
type Flow struct {
	cfg  *Config
	opts []RuntimeOption
}

// FlowOption adjusts a Flow right after its configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption overrides the fetch side: the station query and telemetry.
type StreamInOption func(*Flow)

// StreamOutOption overrides the delivery side: forwarder, ledger, dry-run.
type StreamOutOption func(*Flow)

// Conf loads config.toml (or YAML) and returns a Flow over its stations.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig starts a Flow from an already validated Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends RuntimeOption values directly.
func (f *Flow) Options(opts ...RuntimeOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies delivery overrides and builds the Runtime. Unless a
// ledger is injected, this opens the configured one.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Runtime, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewRuntime(f.cfg, f.opts...)
}

// Run builds the Runtime, runs the configured schedule and closes the ledger
// afterwards. A oneshot run with failed stations returns ErrStationsFailed.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	rt, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	return rt.Run(ctx)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInQuery fetches readings from q instead of the LINDAS endpoint.
func StreamInQuery(q QueryExecutor) StreamInOption {
	return func(f *Flow) {
		if f != nil && q != nil {
			f.appendOptions(WithQueryExecutor(q))
		}
	}
}

// StreamInObservability replaces the slog + Prometheus backend.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutForwarder delivers readings to fwd instead of the Gfrörli API.
func StreamOutForwarder(fwd Forwarder) StreamOutOption {
	return func(f *Flow) {
		if f != nil && fwd != nil {
			f.appendOptions(WithForwarder(fwd))
		}
	}
}

// StreamOutLedger deduplicates against l instead of the configured database.
func StreamOutLedger(l Ledger) StreamOutOption {
	return func(f *Flow) {
		if f != nil && l != nil {
			f.appendOptions(WithLedger(l))
		}
	}
}

// StreamOutDryRun logs would-be payloads; nothing is sent or recorded.
func StreamOutDryRun() StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithDryRun(true))
		}
	}
}

// StreamOutCallback hands every new reading to fn. A nil return marks the
// reading as delivered in the ledger.
func StreamOutCallback(name string, fn ForwardFunc) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithForwarder(NewCallbackForwarder(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...RuntimeOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}

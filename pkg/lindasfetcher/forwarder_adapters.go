package lindasfetcher

import (
	"context"
	"fmt"
)

// ForwardFunc receives every measurement the pipeline would send downstream.
type ForwardFunc func(ctx context.Context, m Measurement, sensorID uint32) error

// NewCallbackForwarder adapts a ForwardFunc into a Forwarder so callers can
// plug arbitrary functions without defining structs. A nil error from fn
// counts as accepted and is recorded in the ledger.
func NewCallbackForwarder(name string, fn ForwardFunc) Forwarder {
	if name == "" {
		name = "callback"
	}
	return &callbackForwarder{name: name, fn: fn}
}

type callbackForwarder struct {
	name string
	fn   ForwardFunc
}

func (f *callbackForwarder) Forward(ctx context.Context, m *Measurement, sensorID uint32) error {
	if f.fn == nil {
		return fmt.Errorf("callback forwarder %q: nil handler", f.name)
	}
	if m == nil {
		return fmt.Errorf("callback forwarder %q: nil measurement", f.name)
	}
	return f.fn(ctx, *m, sensorID)
}

func (f *callbackForwarder) Name() string { return f.name }

package lindasfetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/gfroerli"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/ledger"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/observability"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/sparql"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/status"
	"github.com/gfroerli/lindas-foen-fetcher/internal/app/pipeline"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const (
	ledgerOpenTimeout = 30 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	query         QueryExecutor
	ledger        Ledger
	forwarder     Forwarder
	observability Observability
	logger        *slog.Logger
	httpClient    *http.Client
	dryRun        bool
}

// WithQueryExecutor replaces the LINDAS SPARQL client.
func WithQueryExecutor(q QueryExecutor) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.query = q
	}
}

// WithLedger injects an already opened ledger. The runtime does not close it.
func WithLedger(l Ledger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.ledger = l
	}
}

// WithForwarder replaces the Gfrörli API client.
func WithForwarder(f Forwarder) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.forwarder = f
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger replaces the logger built from the logging section.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithHTTPClient shares one client between the query and forward adapters.
func WithHTTPClient(c *http.Client) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.httpClient = c
	}
}

// WithDryRun forces dry-run regardless of run.dry_run.
func WithDryRun(dryRun bool) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.dryRun = o.dryRun || dryRun
	}
}

// Runtime wires query → dedup → forward → commit for the configured stations
// and exposes simple lifecycle hooks for embedding.
type Runtime struct {
	cfg        *Config
	schedule   ports.Schedule
	logger     *slog.Logger
	registry   *prometheus.Registry
	obs        ports.Observability
	query      ports.QueryExecutor
	ledger     ports.Ledger
	forwarder  ports.Forwarder
	scheduler  *pipeline.Scheduler
	ownsLedger bool
}

// NewRuntime bootstraps the default adapters (SPARQL client, SQL ledger,
// Gfrörli client, slog + Prometheus observability). RuntimeOption values
// override any of them.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs(logger, registry)
	}

	q := overrides.query
	if q == nil {
		q = sparql.NewClient(cfg.SPARQL, overrides.httpClient)
	}

	fwd := overrides.forwarder
	if fwd == nil {
		fwd = gfroerli.NewClient(cfg.GfroerliAPI, overrides.httpClient)
	}

	led := overrides.ledger
	owns := false
	if led == nil {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerOpenTimeout)
		defer cancel()
		l, err := ledger.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		led, owns = l, true
	}

	schedule := cfg.Schedule(overrides.dryRun)
	proc := pipeline.NewStationProcessor(q, cfg, led, fwd, obs, schedule.DryRun)

	return &Runtime{
		cfg:        cfg,
		schedule:   schedule,
		logger:     logger,
		registry:   registry,
		obs:        obs,
		query:      q,
		ledger:     led,
		forwarder:  fwd,
		scheduler:  pipeline.NewScheduler(proc, cfg.StationIDs(), schedule, obs),
		ownsLedger: owns,
	}, nil
}

// Run executes the configured schedule and blocks until it finishes or ctx
// is cancelled. In loop mode with metrics.addr set, the status server runs
// alongside the scheduler.
func (r *Runtime) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if r.schedule.Mode != ModeLoop || r.cfg.Metrics.Addr == "" {
		return r.scheduler.Run(ctx)
	}

	srv := &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           r.statusHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("status server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("status server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := r.scheduler.Run(gctx)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			err = errors.Join(err, serr)
		}
		return err
	})
	return g.Wait()
}

func (r *Runtime) statusHandler() http.Handler {
	var reader status.LedgerReader
	if lr, ok := r.ledger.(status.LedgerReader); ok {
		reader = lr
	}
	return status.NewRouter(r.registry, r.scheduler, reader)
}

// RunOnce executes a single cycle regardless of the configured mode.
func (r *Runtime) RunOnce(ctx context.Context) CycleOutcome {
	return r.scheduler.RunCycle(ctx)
}

// LastOutcome returns the outcome of the most recent cycle.
func (r *Runtime) LastOutcome() (CycleOutcome, bool) {
	return r.scheduler.LastOutcome()
}

// Registry exposes the Prometheus registry the default observability writes to.
func (r *Runtime) Registry() *prometheus.Registry {
	return r.registry
}

// Close releases the ledger if the runtime opened it.
func (r *Runtime) Close() error {
	if r == nil || !r.ownsLedger || r.ledger == nil {
		return nil
	}
	return r.ledger.Close()
}

package status

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
)

const ledgerQueryTimeout = 5 * time.Second

// OutcomeSource exposes the most recent cycle outcome, if any.
type OutcomeSource interface {
	LastOutcome() (domain.CycleOutcome, bool)
}

// LedgerReader is the read side of a ledger.
type LedgerReader interface {
	Count(ctx context.Context) (int64, error)
	Entries(ctx context.Context, sensorID uint32) ([]domain.LedgerEntry, error)
}

type statusResponse struct {
	Ready         bool                 `json:"ready"`
	LastCycle     *domain.CycleOutcome `json:"last_cycle,omitempty"`
	LedgerEntries *int64               `json:"ledger_entries,omitempty"`
	LedgerError   string               `json:"ledger_error,omitempty"`
}

type ledgerEntry struct {
	MeasurementTime time.Time `json:"measurement_time"`
	SentAt          time.Time `json:"sent_at"`
}

type ledgerResponse struct {
	SensorID uint32        `json:"sensor_id"`
	Entries  []ledgerEntry `json:"entries"`
}

// NewRouter serves /metrics, /healthz and /status. With a non-nil ledger,
// /status also reports the ledger size and /ledger/{sensorID} lists the
// entries of one sensor.
func NewRouter(gatherer prometheus.Gatherer, src OutcomeSource, ledger LedgerReader) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		var resp statusResponse
		if out, ok := src.LastOutcome(); ok {
			resp.Ready = true
			resp.LastCycle = &out
		}
		if ledger != nil {
			ctx, cancel := context.WithTimeout(req.Context(), ledgerQueryTimeout)
			defer cancel()
			if n, err := ledger.Count(ctx); err != nil {
				resp.LedgerError = err.Error()
			} else {
				resp.LedgerEntries = &n
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	if ledger != nil {
		r.Get("/ledger/{sensorID}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseUint(chi.URLParam(req, "sensorID"), 10, 32)
			if err != nil || id == 0 {
				http.Error(w, "sensor id must be a positive integer", http.StatusBadRequest)
				return
			}

			ctx, cancel := context.WithTimeout(req.Context(), ledgerQueryTimeout)
			defer cancel()
			entries, err := ledger.Entries(ctx, uint32(id))
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}

			resp := ledgerResponse{SensorID: uint32(id), Entries: make([]ledgerEntry, 0, len(entries))}
			for _, e := range entries {
				resp.Entries = append(resp.Entries, ledgerEntry{MeasurementTime: e.MeasurementTime, SentAt: e.SentAt})
			}
			writeJSON(w, http.StatusOK, resp)
		})
	}
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

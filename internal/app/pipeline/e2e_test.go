package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/gfroerli"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/ledger"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/sparql"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const lindasAnswer = `{"head": {"vars": ["name", "time", "temperature"]},
"results": {"bindings": [{
	"name": {"type": "literal", "value": "Rhine - Basel"},
	"time": {"type": "literal", "value": "2024-06-01T08:00:00Z"},
	"temperature": {"type": "literal", "value": "18.25"}
}]}}`

func TestEndToEndWithSQLiteLedger(t *testing.T) {
	lindas := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/sparql-results+json")
		_, _ = w.Write([]byte(lindasAnswer))
	}))
	defer lindas.Close()

	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/measurements" || r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	}))
	defer api.Close()

	ctx := context.Background()
	led, err := ledger.Open(ctx, ledger.Config{Driver: ledger.DriverSQLite, Path: filepath.Join(t.TempDir(), "measurements.db")})
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer led.Close()

	obs := newMockObs()
	proc := NewStationProcessor(
		sparql.NewClient(sparql.Config{Endpoint: lindas.URL}, lindas.Client()),
		mockResolver{2104: 1},
		led,
		gfroerli.NewClient(gfroerli.Config{APIURL: api.URL, APIKey: "secret"}, api.Client()),
		obs,
		false,
	)
	s := NewScheduler(proc, []uint32{2104}, ports.Schedule{Mode: "oneshot"}, obs)

	if err := s.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(bodies) != 1 {
		t.Fatalf("expected one POST across two runs, got %d", len(bodies))
	}
	if bodies[0]["sensor_id"] != float64(1) || bodies[0]["temperature"] != 18.25 || bodies[0]["created_at"] != "2024-06-01T08:00:00Z" {
		t.Fatalf("unexpected payload: %v", bodies[0])
	}

	entries, err := led.Entries(ctx, 1)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].MeasurementTime.Unix() != 1717228800 {
		t.Fatalf("expected ledger entry (1, 1717228800), got %+v", entries)
	}

	last, _ := s.LastOutcome()
	if last.Duplicates != 1 {
		t.Fatalf("expected the second run to see a duplicate, got %+v", last)
	}
}

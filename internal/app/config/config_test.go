package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalTOML = `
[gfroerli_api]
api_url = "http://localhost:3000/api/"
api_key = "test-api-key"

[[stations]]
foen_station_id = 2104
gfroerli_sensor_id = 1

[[stations]]
foen_station_id = 2176
gfroerli_sensor_id = 2
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", minimalTOML))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Run.Mode != ModeOneshot {
		t.Fatalf("expected default mode oneshot, got %s", cfg.Run.Mode)
	}
	if cfg.Run.IntervalMinutes != 5 {
		t.Fatalf("expected default interval 5, got %d", cfg.Run.IntervalMinutes)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "measurements.db" {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Fatalf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.SPARQL.Endpoint != "https://lindas.admin.ch/query" {
		t.Fatalf("unexpected sparql endpoint %s", cfg.SPARQL.Endpoint)
	}
	if cfg.Metrics.Addr != "" {
		t.Fatalf("expected status server disabled by default, got %q", cfg.Metrics.Addr)
	}

	sched := cfg.Schedule(false)
	if sched.Interval != 5*time.Minute || sched.DryRun {
		t.Fatalf("unexpected schedule %+v", sched)
	}
	if !cfg.Schedule(true).DryRun {
		t.Fatalf("expected dry-run flag to be honoured")
	}
}

func TestLoadFullTOML(t *testing.T) {
	data := `
[logging]
level = "debug"
format = "json"

[database]
path = "/var/lib/lindas/ledger.db"

[run]
mode = "loop"
interval_minutes = 10
dry_run = true

[sparql]
requests_per_second = 0.5

[metrics]
addr = ":9100"
` + minimalTOML

	cfg, err := Load(writeConfig(t, "config.toml", data))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	sched := cfg.Schedule(false)
	if sched.Mode != ModeLoop || sched.Interval != 10*time.Minute || !sched.DryRun {
		t.Fatalf("unexpected schedule %+v", sched)
	}
	if cfg.SPARQL.RequestsPerSecond != 0.5 {
		t.Fatalf("expected 0.5 rps, got %f", cfg.SPARQL.RequestsPerSecond)
	}
	if cfg.Database.Path != "/var/lib/lindas/ledger.db" {
		t.Fatalf("unexpected db path %s", cfg.Database.Path)
	}
}

func TestLoadYAML(t *testing.T) {
	data := `
gfroerli_api:
  api_url: http://localhost:3000/api/
  api_key: test-api-key
stations:
  - foen_station_id: 2104
    gfroerli_sensor_id: 1
`
	cfg, err := Load(writeConfig(t, "config.yaml", data))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if got := cfg.StationIDs(); len(got) != 1 || got[0] != 2104 {
		t.Fatalf("unexpected stations %v", got)
	}
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")
	cfg, err := Load(writeConfig(t, "config.toml", minimalTOML))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GfroerliAPI.APIKey != "from-env" {
		t.Fatalf("expected env api key, got %s", cfg.GfroerliAPI.APIKey)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad level":       "[logging]\nlevel = \"verbose\"\n" + minimalTOML,
		"bad mode":        "[run]\nmode = \"cron\"\n" + minimalTOML,
		"bad interval":    "[run]\ninterval_minutes = -1\n" + minimalTOML,
		"postgres no dsn": "[database]\ndriver = \"postgres\"\n" + minimalTOML,
		"no stations":     "[gfroerli_api]\napi_url = \"http://x/\"\napi_key = \"k\"\n",
		"zero sensor":     minimalTOML + "\n[[stations]]\nfoen_station_id = 2135\ngfroerli_sensor_id = 0\n",
		"dup station":     minimalTOML + "\n[[stations]]\nfoen_station_id = 2104\ngfroerli_sensor_id = 9\n",
		"no api key":      "[gfroerli_api]\napi_url = \"http://x/\"\n[[stations]]\nfoen_station_id = 1\ngfroerli_sensor_id = 1\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.toml", data))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadRejectsUnknownKeysAndSyntax(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", minimalTOML+"\nunexpected = 1\n")); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	if _, err := Load(writeConfig(t, "config.toml", "[[stations]\n")); err == nil {
		t.Fatalf("expected syntax error to fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestSensorFor(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", minimalTOML))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if id, ok := cfg.SensorFor(2176); !ok || id != 2 {
		t.Fatalf("expected sensor 2, got %d ok=%v", id, ok)
	}
	if _, ok := cfg.SensorFor(9999); ok {
		t.Fatalf("expected no mapping for unknown station")
	}
}

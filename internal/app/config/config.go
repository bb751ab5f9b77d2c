package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/gfroerli"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/ledger"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/observability"
	"github.com/gfroerli/lindas-foen-fetcher/internal/adapters/sparql"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const (
	ModeOneshot = "oneshot"
	ModeLoop    = "loop"

	// APIKeyEnv overrides gfroerli_api.api_key when set.
	APIKeyEnv = "GFROERLI_API_KEY"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
	Database    ledger.Config   `toml:"database" yaml:"database"`
	Run         RunConfig       `toml:"run" yaml:"run"`
	SPARQL      sparql.Config   `toml:"sparql" yaml:"sparql"`
	Metrics     MetricsConfig   `toml:"metrics" yaml:"metrics"`
	GfroerliAPI gfroerli.Config `toml:"gfroerli_api" yaml:"gfroerli_api"`
	Stations    []StationConfig `toml:"stations" yaml:"stations"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type RunConfig struct {
	Mode            string `toml:"mode" yaml:"mode"`
	IntervalMinutes int    `toml:"interval_minutes" yaml:"interval_minutes"`
	DryRun          bool   `toml:"dry_run" yaml:"dry_run"`
}

// MetricsConfig configures the status server of loop mode. Empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// StationConfig maps a FOEN hydrological station to a Gfrörli sensor.
type StationConfig struct {
	FOENStationID    uint32 `toml:"foen_station_id" yaml:"foen_station_id"`
	GfroerliSensorID uint32 `toml:"gfroerli_sensor_id" yaml:"gfroerli_sensor_id"`
}

// Load reads a TOML file, or YAML when the extension is .yaml or .yml.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(raw), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	}

	if key := os.Getenv(APIKeyEnv); key != "" {
		cfg.GfroerliAPI.APIKey = key
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Run.Mode == "" {
		c.Run.Mode = ModeOneshot
	}
	if c.Run.IntervalMinutes == 0 {
		c.Run.IntervalMinutes = 5
	}

	c.Database.ApplyDefaults()
	c.SPARQL.ApplyDefaults()
	c.GfroerliAPI.ApplyDefaults()
}

// Validate checks a defaulted configuration.
func (c *Config) Validate() error {
	if _, err := observability.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalid, err)
	}
	if f := strings.ToLower(c.Logging.Format); f != "text" && f != "json" {
		return fmt.Errorf("%w: logging.format must be text or json, got %q", ErrInvalid, c.Logging.Format)
	}
	if c.Run.Mode != ModeOneshot && c.Run.Mode != ModeLoop {
		return fmt.Errorf("%w: run.mode must be %s or %s, got %q", ErrInvalid, ModeOneshot, ModeLoop, c.Run.Mode)
	}
	if c.Run.IntervalMinutes <= 0 {
		return fmt.Errorf("%w: run.interval_minutes must be > 0", ErrInvalid)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("%w: database: %v", ErrInvalid, err)
	}
	if err := c.SPARQL.Validate(); err != nil {
		return fmt.Errorf("%w: sparql: %v", ErrInvalid, err)
	}
	if err := c.GfroerliAPI.Validate(); err != nil {
		return fmt.Errorf("%w: gfroerli_api: %v", ErrInvalid, err)
	}

	if len(c.Stations) == 0 {
		return fmt.Errorf("%w: at least one station must be configured", ErrInvalid)
	}
	seen := make(map[uint32]struct{}, len(c.Stations))
	for i, s := range c.Stations {
		if s.FOENStationID == 0 || s.GfroerliSensorID == 0 {
			return fmt.Errorf("%w: stations[%d]: ids must be positive", ErrInvalid, i)
		}
		if _, dup := seen[s.FOENStationID]; dup {
			return fmt.Errorf("%w: stations[%d]: station %d listed twice", ErrInvalid, i, s.FOENStationID)
		}
		seen[s.FOENStationID] = struct{}{}
	}
	return nil
}

// StationIDs lists the FOEN stations in configured order.
func (c *Config) StationIDs() []uint32 {
	ids := make([]uint32, len(c.Stations))
	for i, s := range c.Stations {
		ids[i] = s.FOENStationID
	}
	return ids
}

func (c *Config) SensorFor(stationID uint32) (uint32, bool) {
	for _, s := range c.Stations {
		if s.FOENStationID == stationID {
			return s.GfroerliSensorID, true
		}
	}
	return 0, false
}

// Schedule derives the scheduler settings. dryRun is OR-ed with run.dry_run.
func (c *Config) Schedule(dryRun bool) ports.Schedule {
	return ports.Schedule{
		Mode:     c.Run.Mode,
		Interval: time.Duration(c.Run.IntervalMinutes) * time.Minute,
		DryRun:   dryRun || c.Run.DryRun,
	}
}

var _ ports.SensorResolver = (*Config)(nil)

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverFile     = "file"

	DefaultPath     = "measurements.db"
	DefaultFilePath = "measurements.ledger"
	DefaultTable    = "sent_measurements"
)

// Config selects the backing store. Path is used by sqlite and file, DSN by
// the postgres drivers.
type Config struct {
	Driver string `toml:"driver" yaml:"driver"`
	Path   string `toml:"path" yaml:"path"`
	DSN    string `toml:"dsn" yaml:"dsn"`
}

func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Path == "" {
		c.Path = DefaultPath
		if c.Driver == DriverFile {
			c.Path = DefaultFilePath
		}
	}
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverFile:
		if c.Path == "" {
			return fmt.Errorf("path is required for driver %s", c.Driver)
		}
	case DriverPostgres, DriverPgx:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for driver %s", c.Driver)
		}
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

func (c *Config) dataSource() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return c.DSN
}

// SQLLedger keeps the forwarded (sensor, instant) pairs in one table whose
// primary key enforces uniqueness. Instants are stored as epoch seconds.
type SQLLedger struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

// New opens the ledger selected by cfg.Driver.
func New(ctx context.Context, cfg Config) (ports.Ledger, error) {
	cfg.ApplyDefaults()
	if cfg.Driver == DriverFile {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return OpenFile(cfg.Path)
	}
	return Open(ctx, cfg)
}

// Open connects to the configured store and creates the ledger table when it
// does not exist yet. Existing rows are never touched.
func Open(ctx context.Context, cfg Config) (*SQLLedger, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverFile {
		return nil, fmt.Errorf("driver %s is not a SQL driver", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.dataSource())
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer, and :memory: databases are per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open %s ledger: %w", cfg.Driver, err)
	}

	l := NewSQLLedger(db, DefaultTable)
	if err := l.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func NewSQLLedger(db *sql.DB, table string) *SQLLedger {
	if table == "" {
		table = DefaultTable
	}
	return &SQLLedger{db: db, tableName: table, now: time.Now}
}

// Init creates the ledger table if absent.
func (l *SQLLedger) Init(ctx context.Context) error {
	stmt := "CREATE TABLE IF NOT EXISTS " + l.tableName + ` (
	sensor_id BIGINT NOT NULL,
	measurement_timestamp BIGINT NOT NULL,
	sent_at BIGINT NOT NULL,
	PRIMARY KEY (sensor_id, measurement_timestamp)
)`
	if _, err := l.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", l.tableName, err)
	}
	return nil
}

func (l *SQLLedger) HasBeenSent(ctx context.Context, sensorID uint32, at time.Time) (bool, error) {
	sensor, ts := domain.LedgerKey(sensorID, at)

	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM "+l.tableName+" WHERE sensor_id = $1 AND measurement_timestamp = $2",
		int64(sensor), ts,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup sensor %d at %d: %w", sensor, ts, err)
	}
	return true, nil
}

// RecordSent inserts the entry. An existing key is reported as
// domain.ErrAlreadyRecorded rather than ignored.
func (l *SQLLedger) RecordSent(ctx context.Context, sensorID uint32, at time.Time) error {
	sensor, ts := domain.LedgerKey(sensorID, at)

	res, err := l.db.ExecContext(ctx,
		"INSERT INTO "+l.tableName+" (sensor_id, measurement_timestamp, sent_at) VALUES ($1,$2,$3)"+
			" ON CONFLICT (sensor_id, measurement_timestamp) DO NOTHING",
		int64(sensor), ts, l.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("record sensor %d at %d: %w", sensor, ts, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record sensor %d at %d: %w", sensor, ts, err)
	}
	if n == 0 {
		return fmt.Errorf("record sensor %d at %d: %w", sensor, ts, domain.ErrAlreadyRecorded)
	}
	return nil
}

// Entries lists the ledger of a sensor, oldest measurement first.
func (l *SQLLedger) Entries(ctx context.Context, sensorID uint32) ([]domain.LedgerEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT measurement_timestamp, sent_at FROM "+l.tableName+" WHERE sensor_id = $1 ORDER BY measurement_timestamp",
		int64(sensorID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.LedgerEntry
	for rows.Next() {
		var ts, sent int64
		if err := rows.Scan(&ts, &sent); err != nil {
			return nil, err
		}
		out = append(out, domain.LedgerEntry{
			SensorID:        sensorID,
			MeasurementTime: time.Unix(ts, 0).UTC(),
			SentAt:          time.Unix(sent, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// Count returns the number of recorded entries.
func (l *SQLLedger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+l.tableName).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *SQLLedger) Close() error { return l.db.Close() }

var _ ports.Ledger = (*SQLLedger)(nil)

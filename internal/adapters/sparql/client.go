package sparql

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const (
	resultsMediaType = "application/sparql-results+json"
	maxBodyBytes     = 4 << 20
)

// Config captures how the SPARQL endpoint is reached.
type Config struct {
	Endpoint          string  `toml:"endpoint" yaml:"endpoint"`
	TimeoutSeconds    int     `toml:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second" yaml:"requests_per_second"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q must be http(s)", c.Endpoint)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0")
	}
	return nil
}

// Client runs the latest-temperature query against a SPARQL endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient builds a client. A nil httpClient gets one with the configured
// timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.ApplyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	c := &Client{endpoint: cfg.Endpoint, http: httpClient}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

func (c *Client) LatestMeasurement(ctx context.Context, stationID uint32) (*domain.Measurement, error) {
	body, err := c.query(ctx, BuildLatestTemperatureQuery(stationID))
	if err != nil {
		return nil, fmt.Errorf("sparql query for station %d: %w", stationID, err)
	}
	m, err := ParseLatestMeasurement(stationID, body)
	if err != nil {
		return nil, fmt.Errorf("sparql result for station %d: %w", stationID, err)
	}
	return m, nil
}

func (c *Client) query(ctx context.Context, q string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	form := url.Values{"query": {q}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMediaType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.StatusError{Endpoint: c.endpoint, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

var _ ports.QueryExecutor = (*Client)(nil)

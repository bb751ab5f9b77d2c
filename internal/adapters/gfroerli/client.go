package gfroerli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
	"github.com/gfroerli/lindas-foen-fetcher/internal/ports"
)

const maxErrorBody = 64 << 10

// Config points at the Gfrörli private API.
type Config struct {
	APIURL         string `toml:"api_url" yaml:"api_url"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

func (c *Config) ApplyDefaults() {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_url %q must be http(s)", c.APIURL)
	}
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}

// measurementRequest is the body of POST /measurements.
type measurementRequest struct {
	SensorID    uint32    `json:"sensor_id"`
	Temperature float64   `json:"temperature"`
	CreatedAt   time.Time `json:"created_at"`
}

// Client forwards measurements to the Gfrörli ingestion API.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	cfg.ApplyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	return &Client{
		url:    endpointURL(cfg.APIURL, "measurements"),
		apiKey: cfg.APIKey,
		http:   httpClient,
	}
}

func (c *Client) Name() string { return "gfroerli" }

// Forward posts one measurement for sensorID. Any non-2xx answer is returned
// as a *domain.StatusError carrying the response body.
func (c *Client) Forward(ctx context.Context, m *domain.Measurement, sensorID uint32) error {
	payload, err := json.Marshal(measurementRequest{
		SensorID:    sensorID,
		Temperature: m.Temperature,
		CreatedAt:   m.Time.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal measurement: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			body = []byte("unable to read error response")
		}
		return &domain.StatusError{Endpoint: c.url, StatusCode: resp.StatusCode, Body: string(body)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func endpointURL(base, endpoint string) string {
	return strings.TrimRight(base, "/") + "/" + endpoint
}

var _ ports.Forwarder = (*Client)(nil)

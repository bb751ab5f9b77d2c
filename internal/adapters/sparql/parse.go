package sparql

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gfroerli/lindas-foen-fetcher/internal/domain"
)

var (
	ErrMalformedResponse  = errors.New("malformed sparql response")
	ErrMissingField       = errors.New("missing binding field")
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrInvalidTemperature = errors.New("invalid temperature")
	ErrTooManyRows        = errors.New("query returned more than one row")
)

// Result variables consumed from each binding.
const (
	fieldName        = "name"
	fieldTime        = "time"
	fieldTemperature = "temperature"
)

// resultSet mirrors the application/sparql-results+json document.
type resultSet struct {
	Results *struct {
		Bindings []binding `json:"bindings"`
	} `json:"results"`
}

// binding maps a result variable to its RDF term.
type binding map[string]term

type term struct {
	Type     string  `json:"type"`
	Value    *string `json:"value"`
	Datatype string  `json:"datatype,omitempty"`
}

// ParseLatestMeasurement decodes a result document into at most one
// measurement. Zero rows yield nil without error.
func ParseLatestMeasurement(stationID uint32, body []byte) (*domain.Measurement, error) {
	var rs resultSet
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rs.Results == nil {
		return nil, fmt.Errorf("%w: no results object", ErrMalformedResponse)
	}

	switch n := len(rs.Results.Bindings); {
	case n == 0:
		return nil, nil
	case n > 1:
		return nil, fmt.Errorf("%w: got %d", ErrTooManyRows, n)
	}

	row := rs.Results.Bindings[0]

	name, err := row.value(fieldName)
	if err != nil {
		return nil, err
	}
	rawTime, err := row.value(fieldTime)
	if err != nil {
		return nil, err
	}
	rawTemp, err := row.value(fieldTemperature)
	if err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, rawTime)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimestamp, rawTime, err)
	}
	temp, err := strconv.ParseFloat(rawTemp, 64)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTemperature, rawTemp, err)
	}
	if math.IsNaN(temp) || math.IsInf(temp, 0) {
		return nil, fmt.Errorf("%w %q: not finite", ErrInvalidTemperature, rawTemp)
	}

	return &domain.Measurement{
		StationID:   stationID,
		StationName: name,
		Time:        ts,
		Temperature: temp,
	}, nil
}

// value is the single extraction step shared by every result variable.
func (b binding) value(field string) (string, error) {
	t, ok := b[field]
	if !ok || t.Value == nil {
		return "", fmt.Errorf("%w %q", ErrMissingField, field)
	}
	return *t.Value, nil
}

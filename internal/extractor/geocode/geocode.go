// Package geocode decorates a RecordExtractor with Google Maps geocoding
// of the extracted property address.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/sheriffdata/gazette-etl/internal/auction"
)

// Config captures the geocoding API parameters.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Enricher wraps an inner extractor and adds latitude/longitude fields
// when the notice yields a street address. Geocoding failure never fails
// the record.
type Enricher struct {
	inner  auction.RecordExtractor
	hc     *http.Client
	base   string
	apiKey string
	logger *zap.Logger
}

// New builds an Enricher around the inner extractor.
func New(inner auction.RecordExtractor, cfg Config, logger *zap.Logger) (*Enricher, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner extractor is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("geocoding api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://maps.googleapis.com/maps/api/geocode/json"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		inner:  inner,
		hc:     &http.Client{Timeout: cfg.Timeout},
		base:   cfg.BaseURL,
		apiKey: cfg.APIKey,
		logger: logger,
	}, nil
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Extract delegates to the inner extractor, then geocodes the street
// address if one was produced.
func (e *Enricher) Extract(ctx context.Context, recordText string) (auction.ExtractionResult, error) {
	res, err := e.inner.Extract(ctx, recordText)
	if err != nil {
		return res, err
	}

	address, ok := res.Fields["street_address"].(string)
	if !ok || address == "" || address == "None" {
		return res, nil
	}

	lat, lng, err := e.geocode(ctx, address)
	if err != nil {
		e.logger.Warn("geocoding failed",
			zap.String("address", address),
			zap.Error(err),
		)
		return res, nil
	}
	res.Fields["latitude"] = lat
	res.Fields["longitude"] = lng
	return res, nil
}

func (e *Enricher) geocode(ctx context.Context, address string) (float64, float64, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", e.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.base+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build geocode request: %w", err)
	}
	resp, err := e.hc.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocode call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, 0, fmt.Errorf("read geocode response: %w", err)
	}
	var parsed geocodeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, 0, fmt.Errorf("decode geocode response: %w", err)
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return 0, 0, fmt.Errorf("geocode status %q", parsed.Status)
	}
	loc := parsed.Results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}

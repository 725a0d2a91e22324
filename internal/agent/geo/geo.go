// Package geo defines the geocoding collaborator.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// Geocoder resolves a free-text address to a coordinate.
type Geocoder interface {
	// Geocode returns the coordinate for the address, scoped to the city
	// when given. Failure to resolve is an error; callers decide whether
	// to fall back.
	Geocode(ctx context.Context, address, city string) (*model.Coordinate, error)
}

// HTTPClient is the production geocoder over a JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a geocoder client with a bounded request timeout.
func NewHTTPClient(cfg model.GeoConfig) *HTTPClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Geocode implements Geocoder.
func (c *HTTPClient) Geocode(ctx context.Context, address, city string) (*model.Coordinate, error) {
	q := url.Values{}
	q.Set("address", address)
	if city != "" {
		q.Set("city", city)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/geocode?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("address", address).Msg("geocode request failed")
		return nil, errx.New(err, http.StatusBadGateway, "geocode request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errx.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errx.New(fmt.Errorf("status %d", resp.StatusCode), http.StatusBadGateway, "geocode request failed")
	}

	var payload struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	return &model.Coordinate{Latitude: payload.Latitude, Longitude: payload.Longitude}, nil
}

var _ Geocoder = (*HTTPClient)(nil)

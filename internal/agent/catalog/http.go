package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// HTTPClient talks to the catalog backend over its JSON API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a catalog client with a bounded request timeout.
func NewHTTPClient(cfg model.CatalogConfig) *HTTPClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logx.Error().Err(err).Str("path", path).Msg("catalog request failed")
		return errx.New(err, http.StatusBadGateway, "catalog request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errx.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return errx.New(fmt.Errorf("status %d", resp.StatusCode), http.StatusBadGateway, "catalog request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}

// SearchProducts implements Backend.
func (c *HTTPClient) SearchProducts(ctx context.Context, req SearchRequest) ([]model.Product, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(req.Latitude, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(req.Longitude, 'f', 6, 64))
	if req.MinPrice > 0 {
		q.Set("price_min", strconv.FormatFloat(req.MinPrice, 'f', 0, 64))
	}
	if req.MaxPrice > 0 {
		q.Set("price_max", strconv.FormatFloat(req.MaxPrice, 'f', 0, 64))
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}

	var payload struct {
		Products []model.Product `json:"products"`
	}
	if err := c.getJSON(ctx, "/v1/products/search", q, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// ProductDetail implements Backend.
func (c *HTTPClient) ProductDetail(ctx context.Context, slug string) (*model.Product, error) {
	var payload struct {
		Product model.Product `json:"product"`
	}
	if err := c.getJSON(ctx, "/v1/products/"+url.PathEscape(slug), nil, &payload); err != nil {
		return nil, err
	}
	return &payload.Product, nil
}

// Cities implements Backend.
func (c *HTTPClient) Cities(ctx context.Context) ([]model.City, error) {
	var payload struct {
		Cities []model.City `json:"cities"`
	}
	if err := c.getJSON(ctx, "/v1/cities", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Cities, nil
}

// SearchCities implements Backend.
func (c *HTTPClient) SearchCities(ctx context.Context, query string) ([]model.City, error) {
	q := url.Values{}
	q.Set("q", query)

	var payload struct {
		Cities []model.City `json:"cities"`
	}
	if err := c.getJSON(ctx, "/v1/cities/search", q, &payload); err != nil {
		return nil, err
	}
	return payload.Cities, nil
}

var _ Backend = (*HTTPClient)(nil)

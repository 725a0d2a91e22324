// Package catalog defines the catalog backend contract and its HTTP
// implementation. The backend does the geographic and price filtering
// server-side; composition-aware preference filtering happens in the
// matching engine on top of these candidates.
package catalog

import (
	"context"

	"github.com/lepestok-ai/server/internal/agent/model"
)

// SearchRequest asks for catalog candidates around a geographic anchor.
// Zero price bounds mean "no bound".
type SearchRequest struct {
	Latitude  float64
	Longitude float64
	MinPrice  float64
	MaxPrice  float64
	Limit     int
}

// Backend is the catalog collaborator.
type Backend interface {
	// SearchProducts returns geo/price filtered candidates.
	SearchProducts(ctx context.Context, req SearchRequest) ([]model.Product, error)

	// ProductDetail looks a product up by its slug.
	ProductDetail(ctx context.Context, slug string) (*model.Product, error)

	// Cities returns the full city reference list.
	Cities(ctx context.Context) ([]model.City, error)

	// SearchCities finds cities by partial name.
	SearchCities(ctx context.Context, query string) ([]model.City, error)
}

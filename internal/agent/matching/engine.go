// Package matching filters and ranks catalog items for a delivery location
// and optional preference text.
//
// Filtering is two-tier: structured composition data first, then product
// name text for items the first tier could not qualify. The fallback exists
// because composition data is not present on every catalog item.
package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/lepestok-ai/server/internal/agent/catalog"
	"github.com/lepestok-ai/server/internal/agent/flora"
	"github.com/lepestok-ai/server/internal/agent/geo"
	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

const (
	// minResults is the target below which the name-text fallback widens
	// the structured filter.
	minResults = 3
	// maxResults caps what a search hands back to the dialogue.
	maxResults = 8
	// candidateLimit bounds how many raw candidates the backend returns.
	candidateLimit = 50
)

// Query describes one search. City or Coordinate must be present; Address
// refines the anchor when it geocodes successfully.
type Query struct {
	City           *model.City
	Coordinate     *model.Coordinate
	Address        string
	Price          *model.BudgetRange
	PreferenceText string
}

// Engine is the product matching engine.
type Engine struct {
	backend  catalog.Backend
	geocoder geo.Geocoder
}

// NewEngine builds a matching engine over the catalog and geocoder.
func NewEngine(backend catalog.Backend, geocoder geo.Geocoder) *Engine {
	return &Engine{backend: backend, geocoder: geocoder}
}

// Search runs the full pipeline: anchor resolution, backend candidate
// fetch, preference filtering, fallback widening, truncation.
// Absence of any geographic anchor is a caller error (errx.ErrCityRequired),
// not a silent empty result.
func (e *Engine) Search(ctx context.Context, q Query) ([]model.Product, error) {
	anchor, err := e.resolveAnchor(ctx, q)
	if err != nil {
		return nil, err
	}

	req := catalog.SearchRequest{
		Latitude:  anchor.Latitude,
		Longitude: anchor.Longitude,
		Limit:     candidateLimit,
	}
	if q.Price != nil {
		req.MinPrice = q.Price.Min
		req.MaxPrice = q.Price.Max
	}

	candidates, err := e.backend.SearchProducts(ctx, req)
	if err != nil {
		return nil, err
	}

	matched := candidates
	if q.PreferenceText != "" {
		prefs := ParsePreferences(q.PreferenceText)
		if !prefs.Empty() {
			matched = filterByPreferences(candidates, prefs)
		}
	}

	if len(matched) > maxResults {
		matched = matched[:maxResults]
	}
	logx.Debug().
		Int("candidates", len(candidates)).
		Int("matched", len(matched)).
		Msg("product search completed")
	return matched, nil
}

// resolveAnchor picks the geographic anchor: a successfully geocoded
// delivery address wins, then an explicit coordinate, then the city
// centroid.
func (e *Engine) resolveAnchor(ctx context.Context, q Query) (*model.Coordinate, error) {
	if q.Address != "" {
		cityName := ""
		if q.City != nil {
			cityName = q.City.Name
		}
		coord, err := e.geocoder.Geocode(ctx, q.Address, cityName)
		if err == nil && coord != nil {
			return coord, nil
		}
		if err != nil && !errors.Is(err, errx.ErrNotFound) {
			logx.Warn().Err(err).Str("address", q.Address).Msg("geocoding failed, falling back to city centroid")
		}
	}
	if q.Coordinate != nil {
		return q.Coordinate, nil
	}
	if q.City != nil && q.City.Centroid != nil {
		return q.City.Centroid, nil
	}
	return nil, errx.ErrCityRequired
}

// filterByPreferences applies disliked rules as hard exclusions first, then
// liked rules as a keep-filter, over structured composition. A composition
// dislike hit disqualifies the item for good; only items the structured tier
// could not qualify are re-tested against the product name when the result
// is too thin.
func filterByPreferences(candidates []model.Product, prefs Preferences) []model.Product {
	matched := make([]model.Product, 0, len(candidates))
	unjudged := make([]model.Product, 0)

	for _, item := range candidates {
		if compositionDisliked(item, prefs) {
			continue
		}
		if compositionLiked(item, prefs) {
			matched = append(matched, item)
		} else {
			unjudged = append(unjudged, item)
		}
	}

	if len(matched) >= minResults {
		return matched
	}

	// Widen: same rules against the name text, merged without duplicates.
	seen := make(map[string]bool, len(matched))
	for _, item := range matched {
		seen[item.ID] = true
	}
	for _, item := range unjudged {
		if seen[item.ID] {
			continue
		}
		if nameMatches(item, prefs) {
			matched = append(matched, item)
			seen[item.ID] = true
		}
	}
	return matched
}

// compositionDisliked reports a hard exclusion: any disliked rule hitting
// the structured composition disqualifies the item, whatever the liked rules
// or the name text say.
func compositionDisliked(item model.Product, prefs Preferences) bool {
	for _, rule := range prefs.Disliked {
		for _, entry := range item.Composition {
			if entry.Flower != rule.Flower {
				continue
			}
			if rule.Color == "" || entry.Color == rule.Color {
				return true
			}
		}
	}
	return false
}

// compositionLiked judges the keep-filter over structured composition.
func compositionLiked(item model.Product, prefs Preferences) bool {
	if len(prefs.Liked) == 0 {
		return true
	}
	for _, rule := range prefs.Liked {
		for _, entry := range item.Composition {
			if entry.Flower != rule.Flower {
				continue
			}
			if rule.Color == "" || entry.Color == rule.Color {
				return true
			}
		}
	}
	return false
}

// nameMatches re-runs the same rules over the product name text. A color
// qualifier requires the color word to appear alongside the flower.
func nameMatches(item model.Product, prefs Preferences) bool {
	name := flora.Normalize(item.Name)

	for _, rule := range prefs.Disliked {
		if nameMentions(name, rule) {
			return false
		}
	}
	if len(prefs.Liked) == 0 {
		return flowerMentioned(name)
	}
	for _, rule := range prefs.Liked {
		if nameMentions(name, rule) {
			return true
		}
	}
	return false
}

func nameMentions(name string, rule Rule) bool {
	flowerFound := false
	for _, f := range flora.FindFlowers(name) {
		if f == rule.Flower {
			flowerFound = true
			break
		}
	}
	if !flowerFound {
		return false
	}
	if rule.Color == "" {
		return true
	}
	for _, c := range flora.FindColors(name) {
		if c == rule.Color {
			return true
		}
	}
	return false
}

// flowerMentioned keeps dislike-only fallbacks honest: a name qualifies
// when it names any known flower at all.
func flowerMentioned(name string) bool {
	return len(flora.FindFlowers(name)) > 0 || strings.Contains(name, "букет")
}

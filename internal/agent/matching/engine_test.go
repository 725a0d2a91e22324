package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepestok-ai/server/internal/agent/catalog"
	"github.com/lepestok-ai/server/internal/agent/model"
	errx "github.com/lepestok-ai/server/internal/core/error"
)

type fakeBackend struct {
	products []model.Product
	err      error
	lastReq  catalog.SearchRequest
}

func (f *fakeBackend) SearchProducts(_ context.Context, req catalog.SearchRequest) ([]model.Product, error) {
	f.lastReq = req
	return f.products, f.err
}

func (f *fakeBackend) ProductDetail(context.Context, string) (*model.Product, error) {
	return nil, errx.ErrNotFound
}

func (f *fakeBackend) Cities(context.Context) ([]model.City, error) { return nil, nil }

func (f *fakeBackend) SearchCities(context.Context, string) ([]model.City, error) { return nil, nil }

type fakeGeocoder struct {
	coord *model.Coordinate
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(context.Context, string, string) (*model.Coordinate, error) {
	f.calls++
	return f.coord, f.err
}

func moscow() *model.City {
	return &model.City{Name: "Москва", Slug: "moskva", Centroid: &model.Coordinate{Latitude: 55.75, Longitude: 37.61}}
}

func bouquet(id, name string, comp ...model.CompositionEntry) model.Product {
	return model.Product{ID: id, Slug: id, Name: name, Price: 3000, ShopID: "shop-1", Composition: comp, Available: true}
}

func TestResolveAnchor(t *testing.T) {
	ctx := context.Background()

	t.Run("geocoded address wins over everything", func(t *testing.T) {
		geocoder := &fakeGeocoder{coord: &model.Coordinate{Latitude: 1, Longitude: 2}}
		e := NewEngine(&fakeBackend{}, geocoder)

		_, err := e.Search(ctx, Query{
			City:       moscow(),
			Coordinate: &model.Coordinate{Latitude: 9, Longitude: 9},
			Address:    "ул. Арбат, 10",
		})
		require.NoError(t, err)
		assert.Equal(t, 1, geocoder.calls)

		backend := e.backend.(*fakeBackend)
		assert.Equal(t, 1.0, backend.lastReq.Latitude)
		assert.Equal(t, 2.0, backend.lastReq.Longitude)
	})

	t.Run("failed geocoding falls back to explicit coordinate", func(t *testing.T) {
		geocoder := &fakeGeocoder{err: errx.ErrNotFound}
		e := NewEngine(&fakeBackend{}, geocoder)

		_, err := e.Search(ctx, Query{
			Coordinate: &model.Coordinate{Latitude: 9, Longitude: 8},
			Address:    "несуществующий адрес",
		})
		require.NoError(t, err)
		assert.Equal(t, 9.0, e.backend.(*fakeBackend).lastReq.Latitude)
	})

	t.Run("city centroid is the last anchor", func(t *testing.T) {
		e := NewEngine(&fakeBackend{}, &fakeGeocoder{})

		_, err := e.Search(ctx, Query{City: moscow()})
		require.NoError(t, err)
		assert.Equal(t, 55.75, e.backend.(*fakeBackend).lastReq.Latitude)
	})

	t.Run("no anchor at all is a caller error", func(t *testing.T) {
		e := NewEngine(&fakeBackend{}, &fakeGeocoder{})

		_, err := e.Search(ctx, Query{})
		require.ErrorIs(t, err, errx.ErrCityRequired)
	})

	t.Run("city without centroid is not an anchor", func(t *testing.T) {
		e := NewEngine(&fakeBackend{}, &fakeGeocoder{})

		_, err := e.Search(ctx, Query{City: &model.City{Name: "Тмутаракань", Slug: "tmutarakan"}})
		require.ErrorIs(t, err, errx.ErrCityRequired)
	})
}

func TestSearchPriceAndLimit(t *testing.T) {
	ctx := context.Background()

	t.Run("budget is forwarded to the backend", func(t *testing.T) {
		backend := &fakeBackend{}
		e := NewEngine(backend, &fakeGeocoder{})

		_, err := e.Search(ctx, Query{City: moscow(), Price: &model.BudgetRange{Min: 2000, Max: 5000}})
		require.NoError(t, err)
		assert.Equal(t, 2000.0, backend.lastReq.MinPrice)
		assert.Equal(t, 5000.0, backend.lastReq.MaxPrice)
		assert.Equal(t, 50, backend.lastReq.Limit)
	})

	t.Run("results are capped", func(t *testing.T) {
		backend := &fakeBackend{}
		for i := 0; i < 20; i++ {
			backend.products = append(backend.products, bouquet("p"+string(rune('a'+i)), "Букет"))
		}
		e := NewEngine(backend, &fakeGeocoder{})

		got, err := e.Search(ctx, Query{City: moscow()})
		require.NoError(t, err)
		assert.Len(t, got, 8)
	})

	t.Run("backend failure surfaces", func(t *testing.T) {
		backend := &fakeBackend{err: errors.New("boom")}
		e := NewEngine(backend, &fakeGeocoder{})

		_, err := e.Search(ctx, Query{City: moscow()})
		require.Error(t, err)
	})
}

func TestFilterByPreferences(t *testing.T) {
	whiteRoses := bouquet("p1", "Белые розы", model.CompositionEntry{Flower: "роза", Color: "белый"})
	redRoses := bouquet("p2", "Алый закат", model.CompositionEntry{Flower: "роза", Color: "красный"})
	lilies := bouquet("p3", "Лилии", model.CompositionEntry{Flower: "лилия", Color: "белый"})
	mixedWithCarnation := bouquet("p4", "Сборный",
		model.CompositionEntry{Flower: "роза", Color: "белый"},
		model.CompositionEntry{Flower: "гвоздика", Color: "красный"},
	)

	t.Run("liked color rule keeps only the exact combination", func(t *testing.T) {
		got := filterByPreferences(
			[]model.Product{whiteRoses, redRoses, lilies},
			Preferences{Liked: []Rule{{Flower: "роза", Color: "белый"}}},
		)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ID)
	})

	t.Run("disliked combination excludes only that combination", func(t *testing.T) {
		got := filterByPreferences(
			[]model.Product{whiteRoses, redRoses},
			Preferences{Disliked: []Rule{{Flower: "роза", Color: "красный"}}},
		)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ID)
	})

	t.Run("colorless dislike excludes the whole flower", func(t *testing.T) {
		got := filterByPreferences(
			[]model.Product{whiteRoses, lilies},
			Preferences{Disliked: []Rule{{Flower: "лилия"}}},
		)
		require.Len(t, got, 1)
		assert.Equal(t, "p1", got[0].ID)
	})

	t.Run("dislike beats like inside one item", func(t *testing.T) {
		got := filterByPreferences(
			[]model.Product{mixedWithCarnation},
			Preferences{
				Liked:    []Rule{{Flower: "роза"}},
				Disliked: []Rule{{Flower: "гвоздика"}},
			},
		)
		assert.Empty(t, got)
	})

	t.Run("composition dislike is final even when the name looks liked", func(t *testing.T) {
		// The name mentions only roses, but the structured composition
		// carries a disliked carnation; the fallback tier must not
		// resurrect the item.
		rosesWithCarnation := bouquet("p5", "Букет роз",
			model.CompositionEntry{Flower: "роза", Color: "белый"},
			model.CompositionEntry{Flower: "гвоздика", Color: "красный"},
		)
		got := filterByPreferences(
			[]model.Product{rosesWithCarnation},
			Preferences{
				Liked:    []Rule{{Flower: "роза"}},
				Disliked: []Rule{{Flower: "гвоздика"}},
			},
		)
		assert.Empty(t, got)
	})

	t.Run("thin result widens through product names", func(t *testing.T) {
		// No composition data at all: the structured tier rejects
		// everything, the name tier recovers the matching items.
		byNameOnly := []model.Product{
			bouquet("n1", "Букет белых роз"),
			bouquet("n2", "Хризантемы в коробке"),
			bouquet("n3", "25 красных роз"),
		}
		got := filterByPreferences(byNameOnly, Preferences{Liked: []Rule{{Flower: "роза", Color: "белый"}}})

		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].ID)
	})

	t.Run("structured matches are not duplicated by the fallback", func(t *testing.T) {
		got := filterByPreferences(
			[]model.Product{whiteRoses},
			Preferences{Liked: []Rule{{Flower: "роза"}}},
		)
		require.Len(t, got, 1)
	})

	t.Run("dislike-only rules pass items without composition data", func(t *testing.T) {
		noComposition := []model.Product{
			bouquet("n1", "Букет дня"),
			bouquet("n2", "Подарочная открытка"),
		}
		got := filterByPreferences(noComposition, Preferences{Disliked: []Rule{{Flower: "лилия"}}})

		require.Len(t, got, 2)
		assert.Equal(t, "n1", got[0].ID)
	})
}

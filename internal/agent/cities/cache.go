// Package cities holds the preloaded city reference set and its lookup
// rules. Resolution is deliberately layered: exact slug, exact name,
// dash-normalized name, substring, then prefix. The first layer that yields
// a hit wins, so the same input always resolves to the same city while the
// reference set is unchanged.
package cities

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/lepestok-ai/server/internal/agent/model"
	logx "github.com/lepestok-ai/server/pkg/logger"
)

// Source supplies the reference set, typically the catalog backend.
type Source interface {
	Cities(ctx context.Context) ([]model.City, error)
}

// Cache is an immutable in-memory index over the city reference set.
type Cache struct {
	cities []model.City
	bySlug map[string]int
	byName map[string]int
	byFold map[string]int // dash/space folded names
}

// NewCache loads the reference set from the source once, at process start.
func NewCache(ctx context.Context, src Source) (*Cache, error) {
	list, err := src.Cities(ctx)
	if err != nil {
		return nil, fmt.Errorf("load city reference set: %w", err)
	}
	c := buildCache(list)
	logx.Info().Int("cities", len(list)).Msg("city reference set loaded")
	return c, nil
}

// NewStaticCache builds a cache from an already known list. Used in tests
// and tooling.
func NewStaticCache(list []model.City) *Cache {
	return buildCache(list)
}

func buildCache(list []model.City) *Cache {
	c := &Cache{
		cities: append([]model.City(nil), list...),
		bySlug: make(map[string]int, len(list)),
		byName: make(map[string]int, len(list)),
		byFold: make(map[string]int, len(list)),
	}
	// Longer names first so substring scans prefer "нижний новгород" over
	// a city whose name happens to be a prefix of it.
	sort.SliceStable(c.cities, func(i, j int) bool {
		return len(c.cities[i].Name) > len(c.cities[j].Name)
	})
	for i, city := range c.cities {
		slug := normalize(city.Slug)
		name := normalize(city.Name)
		if _, ok := c.bySlug[slug]; !ok {
			c.bySlug[slug] = i
		}
		if _, ok := c.byName[name]; !ok {
			c.byName[name] = i
		}
		if fold := foldSeparators(name); fold != "" {
			if _, ok := c.byFold[fold]; !ok {
				c.byFold[fold] = i
			}
		}
	}
	return c
}

// All returns a copy of the reference set.
func (c *Cache) All() []model.City {
	return append([]model.City(nil), c.cities...)
}

// Len returns the reference set size.
func (c *Cache) Len() int {
	return len(c.cities)
}

// Resolve maps free text to a reference city. The boolean is false when no
// layer matches; the caller treats that as "no city", never as an error.
func (c *Cache) Resolve(q string) (*model.City, bool) {
	q = normalize(q)
	if q == "" {
		return nil, false
	}

	if i, ok := c.bySlug[q]; ok {
		return c.cityAt(i), true
	}
	if i, ok := c.byName[q]; ok {
		return c.cityAt(i), true
	}
	if i, ok := c.byFold[foldSeparators(q)]; ok {
		return c.cityAt(i), true
	}

	// Partial: query contained in a name or the other way around.
	for i := range c.cities {
		name := normalize(c.cities[i].Name)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return c.cityAt(i), true
		}
	}

	// Prefix over a trimmed query handles inflected forms ("в Москве").
	if trimmed := trimInflection(q); trimmed != "" {
		for i := range c.cities {
			if strings.HasPrefix(normalize(c.cities[i].Name), trimmed) {
				return c.cityAt(i), true
			}
		}
	}

	return nil, false
}

// FindInText scans the message for any reference city mention. Longest
// names are checked first by construction.
func (c *Cache) FindInText(text string) (*model.City, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return nil, false
	}
	for i := range c.cities {
		name := normalize(c.cities[i].Name)
		if name == "" {
			continue
		}
		if containsWord(normalized, name) || containsWord(normalized, trimInflection(name)) {
			return c.cityAt(i), true
		}
	}
	// Inflected mentions: compare per-word prefixes against city names.
	for _, word := range strings.FieldsFunc(normalized, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		if len([]rune(word)) < 4 {
			continue
		}
		trimmed := trimInflection(word)
		for i := range c.cities {
			name := normalize(c.cities[i].Name)
			if strings.HasPrefix(name, trimmed) && len([]rune(trimmed)) >= len([]rune(name))-2 {
				return c.cityAt(i), true
			}
		}
	}
	return nil, false
}

func (c *Cache) cityAt(i int) *model.City {
	city := c.cities[i]
	return &city
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "ё", "е")
}

func foldSeparators(s string) string {
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, " ", "")
}

// trimInflection drops a likely Russian case ending so "москве" and
// "москву" both reduce toward "москв".
func trimInflection(s string) string {
	runes := []rune(s)
	if len(runes) < 4 {
		return s
	}
	switch runes[len(runes)-1] {
	case 'е', 'у', 'ы', 'а', 'и', 'ю', 'о':
		return string(runes[:len(runes)-1])
	}
	return s
}

func containsWord(text, needle string) bool {
	if needle == "" {
		return false
	}
	idx := strings.Index(text, needle)
	for idx >= 0 {
		before := idx == 0 || !isLetter(rune(text[idx-1]))
		// Allow an inflection tail after the needle.
		if before {
			return true
		}
		next := strings.Index(text[idx+1:], needle)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isLetter(b rune) bool {
	return b != ' ' && b != ',' && b != '.' && b != '!' && b != '?' && b != '\n' && b != '\t'
}

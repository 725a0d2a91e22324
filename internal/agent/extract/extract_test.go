package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepestok-ai/server/internal/agent/cities"
	"github.com/lepestok-ai/server/internal/agent/model"
)

func testEngine() *Engine {
	e := NewEngine(cities.NewStaticCache([]model.City{
		{Name: "Москва", Slug: "moskva", Centroid: &model.Coordinate{Latitude: 55.75, Longitude: 37.61}},
		{Name: "Казань", Slug: "kazan", Centroid: &model.Coordinate{Latitude: 55.79, Longitude: 49.12}},
	}))
	e.now = func() time.Time {
		return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	}
	return e
}

func TestExtractRecipient(t *testing.T) {
	e := testEngine()

	cases := []struct {
		text string
		want model.Recipient
	}{
		{"букет маме", model.RecipientMom},
		{"подарок для мамочки", model.RecipientMom},
		{"жене на годовщину", model.RecipientWife},
		{"хочу порадовать девушку... любимой!", model.RecipientGirlfriend},
		{"цветы для бабушки", model.RecipientGrandmother},
		{"коллеге на юбилей", model.RecipientColleague},
		{"учительнице на выпускной", model.RecipientTeacher},
		{"подруге просто так", model.RecipientFriend},
		{"себе домой", model.RecipientSelf},
		{"просто букет", ""},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Extract(tc.text).Recipient)
		})
	}
}

func TestExtractOccasion(t *testing.T) {
	e := testEngine()

	cases := []struct {
		text string
		want model.Occasion
	}{
		{"маме на день рождения", model.OccasionBirthday},
		{"поздравить с днём рождения", model.OccasionBirthday},
		{"на 8 марта", model.OccasionMarch8},
		{"у нас годовщина свадьбы", model.OccasionAnniversary},
		{"иду на свидание", model.OccasionDate},
		{"мы поссорились, хочу извиниться", model.OccasionApology},
		{"на выписку из роддома", model.OccasionNewborn},
		{"просто так, без повода", model.OccasionJustBecause},
		{"нужен букет", ""},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Extract(tc.text).Occasion)
		})
	}
}

func TestExtractBudget(t *testing.T) {
	e := testEngine()

	cases := []struct {
		name string
		text string
		want *model.BudgetRange
	}{
		{"upper bound", "до 3000 руб", &model.BudgetRange{Min: 0, Max: 3000}},
		{"explicit range", "от 2000 до 5000", &model.BudgetRange{Min: 2000, Max: 5000}},
		{"bare amount widens to a band", "бюджет 3000", &model.BudgetRange{Min: 2400, Max: 3600}},
		{"lower bound stretches upward", "от 2000 рублей", &model.BudgetRange{Min: 2000, Max: 6000}},
		{"thousands suffix", "до 5 тысяч", &model.BudgetRange{Min: 0, Max: 5000}},
		{"k suffix", "в пределах 3к", &model.BudgetRange{Min: 0, Max: 3000}},
		{"amount with currency", "примерно 4000 рублей", &model.BudgetRange{Min: 3200, Max: 4800}},
		{"fractional band rounds half away from zero", "бюджет 1999", &model.BudgetRange{Min: 1599, Max: 2399}},
		{"cheap keyword", "что-нибудь недорогое", &model.BudgetRange{Min: 0, Max: 2500}},
		{"premium keyword", "хочу шикарный букет", &model.BudgetRange{Min: 8000, Max: 50000}},
		{"cheap wins inside недорого", "недорогой букет", &model.BudgetRange{Min: 0, Max: 2500}},
		{"small number is a quantity, not money", "букет из 25 роз", nil},
		{"no budget", "хочу цветы", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Extract(tc.text).Budget)
		})
	}
}

func TestExtractCity(t *testing.T) {
	e := testEngine()

	t.Run("nominative mention", func(t *testing.T) {
		p := e.Extract("город Казань, улицу уточню позже")
		require.NotNil(t, p.City)
		assert.Equal(t, "kazan", p.City.Slug)
	})

	t.Run("inflected mention", func(t *testing.T) {
		p := e.Extract("Доставка в Москву, бюджет до 4000 руб")
		require.NotNil(t, p.City)
		assert.Equal(t, "moskva", p.City.Slug)
	})

	t.Run("no known city", func(t *testing.T) {
		assert.Nil(t, e.Extract("привезите в Хогвартс").City)
	})
}

func TestExtractDate(t *testing.T) {
	e := testEngine()

	cases := []struct {
		name string
		text string
		want string
	}{
		{"iso date", "доставка 2026-03-10", "2026-03-10"},
		{"today", "нужно сегодня", "2026-03-05"},
		{"tomorrow", "привезите завтра", "2026-03-06"},
		{"day after tomorrow", "послезавтра к вечеру", "2026-03-07"},
		{"numeric without year", "доставка 08.03", "2026-03-08"},
		{"numeric with year", "к 01.09.2026", "2026-09-01"},
		{"impossible date ignored", "встреча 32.13", ""},
		{"no date", "когда-нибудь потом", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.Extract(tc.text).Date)
		})
	}
}

func TestExtractAddress(t *testing.T) {
	e := testEngine()

	t.Run("explicit marker", func(t *testing.T) {
		p := e.Extract("Доставить по адресу: ул. Ленина, 10, кв. 5")
		assert.Equal(t, "ул. Ленина, 10, кв. 5", p.Address)
	})

	t.Run("street keyword", func(t *testing.T) {
		p := e.Extract("привезите на проспект Мира 20")
		assert.Equal(t, "проспект Мира 20", p.Address)
	})

	t.Run("no address", func(t *testing.T) {
		assert.Empty(t, e.Extract("хочу букет роз").Address)
	})
}

func TestExtractPreferences(t *testing.T) {
	e := testEngine()

	t.Run("flower clause is kept", func(t *testing.T) {
		p := e.Extract("Она любит белые розы")
		assert.Equal(t, "она любит белые розы", p.Preferences)
	})

	t.Run("allergy fragment is captured", func(t *testing.T) {
		p := e.Extract("Она любит розы, но у неё аллергия на лилии")
		assert.Contains(t, p.Preferences, "аллергия на лилии")
		assert.Contains(t, p.Preferences, "она любит розы")
	})

	t.Run("allergy without a known flower is dropped", func(t *testing.T) {
		p := e.Extract("у меня аллергия на пыль")
		assert.Empty(t, p.Preferences)
	})

	t.Run("color-only clause needs flower context", func(t *testing.T) {
		assert.NotEmpty(t, e.Extract("хочу белый букет").Preferences)
		assert.Empty(t, e.Extract("у неё белое платье").Preferences)
	})

	t.Run("small talk yields nothing", func(t *testing.T) {
		assert.Empty(t, e.Extract("Здравствуйте! Хочу заказать доставку").Preferences)
	})
}

func TestExtractCombined(t *testing.T) {
	e := testEngine()
	p := e.Extract("Маме на день рождения, доставка в Москву завтра, бюджет до 4000 руб. Она любит белые розы, но аллергия на лилии")

	assert.Equal(t, model.RecipientMom, p.Recipient)
	assert.Equal(t, model.OccasionBirthday, p.Occasion)
	require.NotNil(t, p.Budget)
	assert.Equal(t, model.BudgetRange{Min: 0, Max: 4000}, *p.Budget)
	require.NotNil(t, p.City)
	assert.Equal(t, "moskva", p.City.Slug)
	assert.Equal(t, "2026-03-06", p.Date)
	assert.Contains(t, p.Preferences, "аллергия на лилии")
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(model.ExtractedParams{}))
	desc := Describe(model.ExtractedParams{
		Recipient: model.RecipientMom,
		Budget:    &model.BudgetRange{Min: 0, Max: 4000},
	})
	assert.Contains(t, desc, "recipient=mom")
	assert.Contains(t, desc, "budget=0-4000")
}

// Package extract derives structured facts from a raw user utterance.
//
// Every field is driven by an ordered rule list and the first matching rule
// wins. This is a deliberate precision/simplicity trade-off: later rules are
// only reachable when earlier ones fail, so rule order is part of the
// engine's observable behavior and must not be shuffled.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lepestok-ai/server/internal/agent/cities"
	"github.com/lepestok-ai/server/internal/agent/flora"
	"github.com/lepestok-ai/server/internal/agent/model"
)

// Engine scans one message at a time. It is stateless apart from the city
// reference cache and a clock for relative dates.
type Engine struct {
	cities *cities.Cache
	now    func() time.Time
}

// NewEngine builds an extraction engine over the given city reference set.
func NewEngine(cache *cities.Cache) *Engine {
	return &Engine{cities: cache, now: time.Now}
}

// Extract produces the per-message params. Fields the message says nothing
// about stay zero; unresolvable mentions (unknown city, malformed budget)
// are dropped silently rather than surfaced as errors.
func (e *Engine) Extract(text string) model.ExtractedParams {
	normalized := flora.Normalize(text)

	params := model.ExtractedParams{
		Recipient:   matchCategory(recipientRules, normalized),
		Occasion:    matchOccasion(normalized),
		Budget:      extractBudget(normalized),
		Address:     extractAddress(text),
		Date:        e.extractDate(normalized),
		Preferences: extractPreferences(normalized),
	}

	if city, ok := e.cities.FindInText(text); ok {
		params.City = city
	}

	return params
}

// ================ Recipient ================

type recipientRule struct {
	pattern  string
	category model.Recipient
}

// Order matters: more specific stems go first ("бабушк" before any rule a
// longer word could fall through to).
var recipientRules = []recipientRule{
	{"бабушк", model.RecipientGrandmother},
	{"маме", model.RecipientMom},
	{"мама", model.RecipientMom},
	{"мамы", model.RecipientMom},
	{"мамочк", model.RecipientMom},
	{"мамул", model.RecipientMom},
	{"жене", model.RecipientWife},
	{"жены", model.RecipientWife},
	{"супруг", model.RecipientWife},
	{"девушке", model.RecipientGirlfriend},
	{"любимой", model.RecipientGirlfriend},
	{"невест", model.RecipientGirlfriend},
	{"дочер", model.RecipientDaughter},
	{"дочк", model.RecipientDaughter},
	{"сестр", model.RecipientSister},
	{"коллег", model.RecipientColleague},
	{"начальниц", model.RecipientColleague},
	{"учительниц", model.RecipientTeacher},
	{"учител", model.RecipientTeacher},
	{"воспитател", model.RecipientTeacher},
	{"подруг", model.RecipientFriend},
	{"друг", model.RecipientFriend},
	{"себе", model.RecipientSelf},
	{"для себя", model.RecipientSelf},
}

func matchCategory(rules []recipientRule, normalized string) model.Recipient {
	for _, r := range rules {
		if strings.Contains(normalized, r.pattern) {
			return r.category
		}
	}
	return ""
}

// ================ Occasion ================

type occasionRule struct {
	pattern  string
	category model.Occasion
}

var occasionRules = []occasionRule{
	{"день рождения", model.OccasionBirthday},
	{"днем рождения", model.OccasionBirthday},
	{"днюх", model.OccasionBirthday},
	{"деньрожден", model.OccasionBirthday},
	{"8 марта", model.OccasionMarch8},
	{"восьмое марта", model.OccasionMarch8},
	{"восьмого марта", model.OccasionMarch8},
	{"годовщин", model.OccasionAnniversary},
	{"юбиле", model.OccasionAnniversary},
	{"свадьб", model.OccasionWedding},
	{"свидани", model.OccasionDate},
	{"извини", model.OccasionApology},
	{"прощени", model.OccasionApology},
	{"помирит", model.OccasionApology},
	{"поссорил", model.OccasionApology},
	{"соболезнован", model.OccasionSympathy},
	{"похорон", model.OccasionSympathy},
	{"траур", model.OccasionSympathy},
	{"выписк", model.OccasionNewborn},
	{"новорожден", model.OccasionNewborn},
	{"родилась", model.OccasionNewborn},
	{"родился", model.OccasionNewborn},
	{"просто так", model.OccasionJustBecause},
	{"без повода", model.OccasionJustBecause},
}

func matchOccasion(normalized string) model.Occasion {
	for _, r := range occasionRules {
		if strings.Contains(normalized, r.pattern) {
			return r.category
		}
	}
	return ""
}

// ================ Budget ================

// thousandsSuffix matches "тысяч"/"тыс."/"к". \w and \b are ASCII-only in
// RE2, so Cyrillic continuations and boundaries are spelled out.
const thousandsSuffix = `тыс[а-яё]*|к(?:[^а-яёa-z0-9]|$)`

var (
	budgetRangeRe = regexp.MustCompile(`от\s*(\d[\d\s]*)\s*(` + thousandsSuffix + `)?\s*до\s*(\d[\d\s]*)\s*(` + thousandsSuffix + `)?`)
	budgetUpperRe = regexp.MustCompile(`(?:до|не дороже|максимум|в пределах)\s*(\d[\d\s]*)\s*(` + thousandsSuffix + `)?`)
	budgetLowerRe = regexp.MustCompile(`(?:от|не дешевле|минимум)\s*(\d[\d\s]*)\s*(` + thousandsSuffix + `)?`)
	budgetBareRe  = regexp.MustCompile(`(?:бюджет\D{0,8}|примерно\s*|около\s*|за\s*)?(\d[\d\s]*)\s*(` + thousandsSuffix + `)?\s*(?:руб[а-яё]*|р(?:[^а-яёa-z0-9]|$)|₽)`)
	budgetWordRe  = regexp.MustCompile(`бюджет\D{0,8}(\d[\d\s]*)\s*(` + thousandsSuffix + `)?`)
)

// extractBudget tries four literal shapes in precedence order, then the
// qualitative keywords. Fractional bounds round half away from zero to whole
// currency units.
func extractBudget(normalized string) *model.BudgetRange {
	if m := budgetRangeRe.FindStringSubmatch(normalized); m != nil {
		min, okMin := parseAmount(m[1], m[2])
		max, okMax := parseAmount(m[3], m[4])
		if okMin && okMax && min <= max {
			return &model.BudgetRange{Min: min, Max: max}
		}
	}
	if m := budgetUpperRe.FindStringSubmatch(normalized); m != nil {
		if max, ok := parseAmount(m[1], m[2]); ok {
			return &model.BudgetRange{Min: 0, Max: max}
		}
	}
	if m := budgetLowerRe.FindStringSubmatch(normalized); m != nil {
		if min, ok := parseAmount(m[1], m[2]); ok {
			return &model.BudgetRange{Min: min, Max: min * 3}
		}
	}
	for _, re := range []*regexp.Regexp{budgetBareRe, budgetWordRe} {
		if m := re.FindStringSubmatch(normalized); m != nil {
			if amount, ok := parseAmount(m[1], m[2]); ok {
				return &model.BudgetRange{
					Min: math.Round(amount * 0.8),
					Max: math.Round(amount * 1.2),
				}
			}
		}
	}
	// Qualitative fallbacks. "недорого" contains "дорог", so the low band
	// is checked first.
	for _, kw := range []string{"недорог", "дешев", "бюджетн", "эконом"} {
		if strings.Contains(normalized, kw) {
			return &model.BudgetRange{Min: 0, Max: 2500}
		}
	}
	for _, kw := range []string{"премиум", "люкс", "шикарн", "дорог", "vip"} {
		if strings.Contains(normalized, kw) {
			return &model.BudgetRange{Min: 8000, Max: 50000}
		}
	}
	return nil
}

func parseAmount(digits, suffix string) (float64, bool) {
	digits = strings.ReplaceAll(digits, " ", "")
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	if suffix != "" {
		v *= 1000
	}
	// A plausibility floor: a three-digit amount without a thousands suffix
	// is still money, anything below that is likely a quantity.
	if v < 100 {
		return 0, false
	}
	return v, true
}

// ================ Date ================

var (
	isoDateRe     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[./](\d{1,2})(?:[./](\d{4}))?\b`)
)

func (e *Engine) extractDate(normalized string) string {
	if m := isoDateRe.FindStringSubmatch(normalized); m != nil {
		if _, err := time.Parse("2006-01-02", m[0]); err == nil {
			return m[0]
		}
	}
	now := e.now()
	switch {
	case strings.Contains(normalized, "послезавтра"):
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	case strings.Contains(normalized, "завтра"):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(normalized, "сегодня"):
		return now.Format("2006-01-02")
	}
	if m := numericDateRe.FindStringSubmatch(normalized); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if candidate.Day() == day && int(candidate.Month()) == month {
			return candidate.Format("2006-01-02")
		}
	}
	return ""
}

// ================ Address ================

// The captures admit '.' so abbreviations like "ул." and "д. 10" survive;
// the cost is that a follow-up sentence on the same line leaks into the
// address. The geocoder tolerates trailing noise.
var addressRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)по адресу[:\s]+([^!?\n]+)`),
	regexp.MustCompile(`(?i)адрес[:\s]+([^!?\n]+)`),
	regexp.MustCompile(`(?i)((?:ул\.?|улица|просп\.?|проспект|пер\.?|переулок|бульвар|шоссе)\s*[^!?\n]+)`),
}

func extractAddress(text string) string {
	for _, re := range addressRes {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.Trim(strings.TrimSpace(m[1]), ".")
		}
	}
	return ""
}

// ================ Preferences ================

var allergyRes = []*regexp.Regexp{
	regexp.MustCompile(`аллерги[а-яё]*\s+на\s+([^.!?\n,;]+)`),
	regexp.MustCompile(`не\s+перенос[а-яё]+\s+([^.!?\n,;]+)`),
	regexp.MustCompile(`нельзя\s+([^.!?\n,;]+)`),
}

// extractPreferences keeps the clauses that mention known flowers or colors
// plus any allergy fragment, so the matching engine can parse liked and
// disliked rules from a compact string.
func extractPreferences(normalized string) string {
	var parts []string

	for _, re := range allergyRes {
		if m := re.FindStringSubmatch(normalized); m != nil {
			fragment := strings.TrimSpace(m[1])
			if len(flora.FindFlowers(fragment)) > 0 {
				parts = append(parts, "аллергия на "+fragment)
			}
			break
		}
	}

	for _, clause := range splitClauses(normalized) {
		if strings.Contains(clause, "аллерги") || strings.Contains(clause, "не перенос") || strings.Contains(clause, "нельзя") {
			continue // already captured above
		}
		if len(flora.FindFlowers(clause)) > 0 || hasColorWithFlowerContext(clause) {
			parts = append(parts, strings.TrimSpace(clause))
		}
	}

	return strings.Join(parts, "; ")
}

// hasColorWithFlowerContext keeps color-only clauses when they talk about
// flowers generically ("хочу что-то белое" is not enough, "белый букет" is).
func hasColorWithFlowerContext(clause string) bool {
	if len(flora.FindColors(clause)) == 0 {
		return false
	}
	return strings.Contains(clause, "букет") || strings.Contains(clause, "цвет")
}

func splitClauses(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '.', ',', ';', '!', '?', '\n':
			return true
		}
		return false
	})
}

// Describe renders params for logging.
func Describe(p model.ExtractedParams) string {
	var sb strings.Builder
	if p.Recipient != "" {
		fmt.Fprintf(&sb, "recipient=%s ", p.Recipient)
	}
	if p.Occasion != "" {
		fmt.Fprintf(&sb, "occasion=%s ", p.Occasion)
	}
	if p.Budget != nil {
		fmt.Fprintf(&sb, "budget=%.0f-%.0f ", p.Budget.Min, p.Budget.Max)
	}
	if p.City != nil {
		fmt.Fprintf(&sb, "city=%s ", p.City.Slug)
	}
	if p.Date != "" {
		fmt.Fprintf(&sb, "date=%s ", p.Date)
	}
	return strings.TrimSpace(sb.String())
}

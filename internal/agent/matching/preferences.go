package matching

import (
	"strings"

	"github.com/lepestok-ai/server/internal/agent/flora"
)

// Rule is one preference: a flower, optionally qualified by a color.
// A disliked rule without a color excludes the whole flower; with a color it
// excludes only that combination. A liked rule without a color matches any
// color of the flower; with a color it requires an exact color match.
type Rule struct {
	Flower string
	Color  string
}

// Preferences is the parsed form of free preference text.
type Preferences struct {
	Liked    []Rule
	Disliked []Rule
}

// Empty reports whether no rules were found.
func (p Preferences) Empty() bool {
	return len(p.Liked) == 0 && len(p.Disliked) == 0
}

// negation markers flip a clause from liked to disliked.
var negationMarkers = []string{
	"аллерги",
	"не перенос",
	"нельзя",
	"не люб",
	"не надо",
	"не нужн",
	"без ",
	"кроме",
	"только не",
	"убрать",
	"исключ",
}

// ParsePreferences splits the text into clauses and classifies the flower
// and color mentions of each clause. A single color in a clause qualifies
// every flower of that clause; multiple or no colors leave the flowers
// unqualified, since attribution would be guesswork.
func ParsePreferences(text string) Preferences {
	var p Preferences
	normalized := flora.Normalize(text)

	for _, clause := range splitClauses(normalized) {
		flowers := flora.FindFlowers(clause)
		if len(flowers) == 0 {
			continue
		}
		var color string
		if colors := flora.FindColors(clause); len(colors) == 1 {
			color = colors[0]
		}
		rules := make([]Rule, 0, len(flowers))
		for _, flower := range flowers {
			rules = append(rules, Rule{Flower: flower, Color: color})
		}
		if isNegated(clause) {
			p.Disliked = append(p.Disliked, rules...)
		} else {
			p.Liked = append(p.Liked, rules...)
		}
	}

	return p
}

func isNegated(clause string) bool {
	for _, marker := range negationMarkers {
		if strings.Contains(clause, marker) {
			return true
		}
	}
	return false
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

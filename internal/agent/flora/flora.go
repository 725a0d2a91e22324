// Package flora holds the flower and color vocabularies shared by the
// parameter extraction engine and the product matching engine. Matching is
// stem-based over normalized Russian text; flower patterns spell out the
// accepted endings so that e.g. "розовый" (the color) never matches "роза"
// (the flower).
package flora

import (
	"regexp"
	"strings"
)

// Term binds a canonical vocabulary name to its recognition pattern.
type Term struct {
	Canonical string
	pattern   *regexp.Regexp
}

// Match reports whether the term occurs in the normalized text.
func (t Term) Match(text string) bool {
	return t.pattern.MatchString(text)
}

// flowerTerm builds a pattern for a stem with an explicit ending set. The
// ending may be absent only when the next rune is not a letter, so the stem
// cannot leak into an unrelated word.
func flowerTerm(canonical, stem, endings string) Term {
	expr := "(?:^|[^\\p{L}])" + stem + "(?:" + endings + ")?(?:$|[^\\p{L}])"
	return Term{Canonical: canonical, pattern: regexp.MustCompile(expr)}
}

// colorTerm matches a color adjective stem with any continuation, since
// color stems do not collide with other vocabulary once flowers are matched
// strictly.
func colorTerm(canonical, stem string) Term {
	expr := "(?:^|[^\\p{L}])" + stem + "[\\p{L}]*"
	return Term{Canonical: canonical, pattern: regexp.MustCompile(expr)}
}

// Flowers is the known flower vocabulary in rule order.
var Flowers = []Term{
	flowerTerm("роза", "роз", "а|ы|у|е|ой|ам|ами|ах|очка|очки|очек|очкам"),
	flowerTerm("тюльпан", "тюльпан", "ы|а|ов|ам|ами|ах|чик|чики"),
	flowerTerm("пион", "пион", "ы|а|ов|ам|ами|ах|чик|чики"),
	flowerTerm("хризантема", "хризантем", "а|ы|у|е|ой|ам|ами|ах"),
	flowerTerm("гербера", "гербер", "а|ы|у|е|ой|ам|ами|ах"),
	flowerTerm("лилия", "лили", "я|и|ю|е|ей|ям|ями|ях"),
	flowerTerm("орхидея", "орхиде", "я|и|ю|е|ей|ям|ями|ях"),
	flowerTerm("ромашка", "ромашк", "а|и|у|е|ой|ам|ами|ах"),
	flowerTerm("гвоздика", "гвоздик", "а|и|у|е|ой|ам|ами|ах"),
	flowerTerm("альстромерия", "альстромери", "я|и|ю|е|ей|ям|ями|ях"),
	flowerTerm("эустома", "эустом", "а|ы|у|е|ой|ам|ами|ах"),
	flowerTerm("гортензия", "гортензи", "я|и|ю|е|ей|ям|ями|ях"),
}

// Colors is the known color vocabulary in rule order.
var Colors = []Term{
	colorTerm("белый", "бел"),
	colorTerm("красный", "красн"),
	colorTerm("розовый", "розов"),
	colorTerm("желтый", "желт"),
	colorTerm("оранжевый", "оранжев"),
	colorTerm("фиолетовый", "фиолетов"),
	colorTerm("сиреневый", "сиренев"),
	colorTerm("синий", "син"),
	colorTerm("голубой", "голуб"),
	colorTerm("кремовый", "кремов"),
	colorTerm("персиковый", "персиков"),
	colorTerm("бордовый", "бордов"),
}

// Normalize lowercases the text and folds ё so vocabulary patterns stay
// single-spelled.
func Normalize(text string) string {
	text = strings.ToLower(text)
	return strings.ReplaceAll(text, "ё", "е")
}

// FindFlowers returns canonical names of all flowers mentioned in the text,
// in vocabulary order.
func FindFlowers(text string) []string {
	return findTerms(Flowers, Normalize(text))
}

// FindColors returns canonical names of all colors mentioned in the text,
// in vocabulary order.
func FindColors(text string) []string {
	return findTerms(Colors, Normalize(text))
}

func findTerms(terms []Term, normalized string) []string {
	var found []string
	for _, t := range terms {
		if t.Match(normalized) {
			found = append(found, t.Canonical)
		}
	}
	return found
}

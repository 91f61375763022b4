package extract

import (
	"strings"
	"time"
)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "sept": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// inferMonth scans free text (anchor text, surrounding listing text, URL
// segments) for a month name. Best effort: ambiguous input may
// mis-attribute, and absence reports false so the caller can fall back to
// the period's first month.
func inferMonth(texts ...string) (time.Month, bool) {
	for _, text := range texts {
		for _, token := range tokenize(text) {
			if m, ok := monthNames[token]; ok {
				return m, true
			}
		}
	}
	return 0, false
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
}

package itinerary

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizePlaceKey builds the fuzzy matching key for a place name and its
// area or city. The result is lowercase letters and digits only, with
// diacritics folded, so "Café de Flore", "Paris" and "cafe DE flore", "paris"
// produce the same key. Empty inputs yield an empty key.
func NormalizePlaceKey(name, area string) string {
	s := strings.TrimSpace(name + " " + area)
	s = foldDiacritics(s)
	// Upper first so letters without a round trip (ı, ς, ſ) collapse.
	s = strings.ToLower(strings.ToUpper(s))

	// Punctuation, symbols and whitespace all drop out here.
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// foldDiacritics strips combining marks after canonical decomposition.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

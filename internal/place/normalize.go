package place

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Unknown is the place token used when no strategy yields a usable name.
const Unknown = "unknown"

// Normalize folds a raw locality into a filename-safe token: diacritics
// stripped, lowercased, punctuation dropped, and runs of spaces,
// underscores, and hyphens collapsed to single hyphens. Underscores fold
// to hyphens so the token never collides with the underscore separators
// in group directory names.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(foldDiacritics(raw)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), "-")
	if out == "" {
		return Unknown
	}
	return out
}

// foldDiacritics decomposes the string and drops combining marks, so
// "São Paulo" becomes "Sao Paulo". The transformer chain is built per
// call because transformers are not safe for concurrent reuse.
func foldDiacritics(s string) string {
	chain := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}

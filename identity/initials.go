package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// academicTitles are stripped from names before deriving initials. Matching
// is a case-insensitive substring match, so "Ing. Jan Novák Ph.D." loses
// both the prefix and the suffix title.
var academicTitles = []string{
	"ing.", "mgr.", "bc.", "mudr.", "judr.", "phdr.", "rndr.",
	"doc.", "prof.", "ph.d.", "csc.", "drsc.", "mba", "dis.",
}

// Initials derives initials from a display name: academic titles are
// stripped, the remaining text is split on whitespace, and the uppercase
// first letter of each token whose first character is alphabetic is taken.
// A name that is already a bare initials token comes back unchanged, so
// deriving twice is stable. Returns "?" when no initial can be derived.
func Initials(name string) string {
	if fields := strings.Fields(name); len(fields) == 1 && isInitialsToken(fields[0]) {
		return fields[0]
	}

	lower := strings.ToLower(name)
	for _, title := range academicTitles {
		lower = strings.ReplaceAll(lower, title, "")
	}

	var b strings.Builder
	for _, word := range strings.Fields(lower) {
		first := []rune(word)[0]
		if unicode.IsLetter(first) {
			b.WriteRune(unicode.ToUpper(first))
		}
	}

	if b.Len() == 0 {
		return "?"
	}
	return b.String()
}

// isInitialsToken reports whether the token looks like already-derived
// initials: uppercase letters only and not a dotless academic title such
// as "MBA".
func isInitialsToken(tok string) bool {
	for _, r := range tok {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	low := strings.ToLower(tok)
	for _, title := range academicTitles {
		if low == title {
			return false
		}
	}
	return true
}

// asciiFold decomposes accented characters and drops the combining marks,
// mapping e.g. "Novák" to "Novak".
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds diacritics to their closest ASCII equivalent so text can
// be rendered with the base-14 PDF fonts, which have no glyphs for accented
// characters. Input that cannot be transformed is returned unchanged.
func Normalize(text string) string {
	out, _, err := transform.String(asciiFold, text)
	if err != nil {
		return text
	}
	return out
}

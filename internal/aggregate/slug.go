package aggregate

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9_]`)
)

// Slugify turns a display name into the pilot id: accents removed, lowercased,
// whitespace runs collapsed to "_" and everything outside [a-z0-9_] dropped.
// "José  da Silva" becomes "jose_da_silva". Names with no Latin letters or
// digits, such as "李雷", keep their own letters and digits instead so they
// still get an id.
func Slugify(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(stripMarks, trimmed)
	if err != nil {
		plain = trimmed
	}

	lowered := cases.Lower(language.Und).String(plain)
	underscored := whitespaceRun.ReplaceAllString(lowered, "_")
	if slug := nonSlugChars.ReplaceAllString(underscored, ""); slug != "" {
		return slug
	}
	return unicodeSlug(underscored)
}

// unicodeSlug keeps letters, digits and "_" from an already lowered name. It
// returns "" when the name has no letters or digits at all.
func unicodeSlug(lowered string) string {
	var b strings.Builder
	alnum := false
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			alnum = true
			b.WriteRune(r)
		case r == '_':
			b.WriteRune(r)
		}
	}
	if !alnum {
		return ""
	}
	return b.String()
}

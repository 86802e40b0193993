// Package slugs derives the human-readable identifiers of every catalog resource.
// All functions are pure: a slug only depends on the current state of the resource
// and of its parents.
package slugs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reserved is appended to slugs that would otherwise be ambiguous with an id or with
// a reserved route segment.
const Reserved = "!"

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	invalidRE    = regexp.MustCompile(`[^\p{L}\p{N}_-]`)
	dashesRE     = regexp.MustCompile(`-{2,}`)
	underscoreRE = regexp.MustCompile(`_{2,}`)
	numericRE    = regexp.MustCompile(`^\d+$`)

	reservedNames = map[string]struct{}{
		"random": {},
	}
)

// FromTitle turns an arbitrary title into a slug: lowercase, diacritics removed,
// whitespace replaced by dashes, anything that is not a letter, a digit, a dash or an
// underscore dropped.
func FromTitle(title string) string {
	s := strings.ToLower(title)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if normalized, _, err := transform.String(t, s); err == nil {
		s = normalized
	}
	s = whitespaceRE.ReplaceAllString(s, "-")
	s = invalidRE.ReplaceAllString(s, "")
	s = underscoreRE.ReplaceAllString(s, "_")
	s = dashesRE.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// Reserve suffixes slugs that would be mistaken for an id (numeric only) or for a
// reserved name.
func Reserve(slug string) string {
	if numericRE.MatchString(slug) {
		return slug + Reserved
	}
	if _, ok := reservedNames[slug]; ok {
		return slug + Reserved
	}
	return slug
}

// IsClean reports whether slug is already in the form FromTitle and Reserve would
// produce.
func IsClean(slug string) bool {
	base := strings.TrimSuffix(slug, Reserved)
	if base == "" {
		return false
	}
	if Reserve(base) != slug {
		return false
	}
	return FromTitle(base) == base
}

// Base returns the slug a resource titled title starts from, before any
// disambiguation.
func Base(title string) string {
	return Reserve(FromTitle(title))
}

// Disambiguate returns the slug to try on the given attempt of resolving a collision.
// Attempt 0 is the base itself. When the year is known it is tried first, then a
// counter starting at 2.
func Disambiguate(base string, year *int, attempt int) string {
	if attempt <= 0 {
		return base
	}
	if year != nil {
		if attempt == 1 {
			return fmt.Sprintf("%s-%d", base, *year)
		}
		return fmt.Sprintf("%s-%d", base, attempt)
	}
	return fmt.Sprintf("%s-%d", base, attempt+1)
}

// Season returns the slug of a season of the given show.
func Season(showSlug string, seasonNumber int) string {
	return fmt.Sprintf("%s-s%d", showSlug, seasonNumber)
}

// FromFileName derives a slug from the base name of a file, without its extension.
func FromFileName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	slug := FromTitle(name)
	if slug == "" {
		slug = "unknown"
	}
	return Reserve(slug)
}

// Package sortname derives the name a show is sorted by from its display name.
package sortname

import (
	"strings"
	"unicode"
)

// Articles are moved from the start of a name to its end, so that "The Expanse" sorts
// as "Expanse, The".
var Articles = []string{
	"The",
	"A",
	"An",
}

// ForTitle returns the sort name of a show title. Leading punctuation is dropped and a
// leading article is moved to the end. Examples:
//   - "The Expanse" -> "Expanse, The"
//   - ".hack//Sign" -> "hack//Sign"
//   - "A Silent Voice" -> "Silent Voice, A"
//   - "Made in Abyss" -> "Made in Abyss"
func ForTitle(title string) string {
	title = strings.TrimSpace(title)
	stripped := strings.TrimLeftFunc(title, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	if stripped == "" {
		// Nothing but punctuation, keep it as is.
		return title
	}

	word, rest, ok := strings.Cut(stripped, " ")
	rest = strings.TrimSpace(rest)
	if !ok || rest == "" {
		return stripped
	}
	for _, article := range Articles {
		if strings.EqualFold(word, article) {
			return rest + ", " + word
		}
	}
	return stripped
}

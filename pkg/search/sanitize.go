package search

import "strings"

const maxQueryLength = 100

// SanitizeFTSQuery quotes user input so FTS5 matches it as a literal phrase. Without
// it, words like NOT or characters like * and : would be read as operators.
func SanitizeFTSQuery(input string) string {
	input = strings.TrimSpace(input)
	if len(input) > maxQueryLength {
		input = input[:maxQueryLength]
	}
	if input == "" {
		return ""
	}

	input = strings.ReplaceAll(input, `"`, `""`)
	return `"` + input + `"`
}

// BuildPrefixQuery creates an FTS5 query matching any indexed text that starts with
// the phrase.
func BuildPrefixQuery(userInput string) string {
	sanitized := SanitizeFTSQuery(userInput)
	if sanitized == "" {
		return ""
	}
	return sanitized + "*"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the wildcards of a LIKE pattern. The query must declare
// ESCAPE '\'.
func EscapeLike(input string) string {
	return likeEscaper.Replace(input)
}

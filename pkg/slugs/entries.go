package slugs

import (
	"fmt"
	"strings"

	"github.com/shishobooks/kino/pkg/models"
)

// Entry returns the slug of an entry given the slug of its show. Episodes use their
// season and episode when both are known and their absolute number otherwise. Movies
// share the slug of their show. Specials use their special number, extras their
// name, and unknown entries the name they were given from their file.
func Entry(showSlug string, entry *models.Entry) string {
	switch entry.Kind {
	case models.EntryKindEpisode:
		if entry.SeasonNumber != nil && entry.EpisodeNumber != nil {
			return fmt.Sprintf("%s-s%de%d", showSlug, *entry.SeasonNumber, *entry.EpisodeNumber)
		}
		if entry.AbsoluteNumber != nil {
			return fmt.Sprintf("%s-%d", showSlug, *entry.AbsoluteNumber)
		}
	case models.EntryKindMovie:
		return showSlug
	case models.EntryKindSpecial:
		if entry.EpisodeNumber != nil {
			return fmt.Sprintf("%s-sp%d", showSlug, *entry.EpisodeNumber)
		}
	case models.EntryKindExtra:
		name := "extra"
		if entry.Name != nil && FromTitle(*entry.Name) != "" {
			name = FromTitle(*entry.Name)
		}
		return fmt.Sprintf("%s-%s", showSlug, name)
	case models.EntryKindUnknown:
		name := "unknown"
		if entry.Name != nil && FromTitle(*entry.Name) != "" {
			name = FromTitle(*entry.Name)
		}
		if showSlug == "" {
			return Reserve(name)
		}
		return fmt.Sprintf("%s-%s", showSlug, name)
	}
	if entry.Name != nil && FromTitle(*entry.Name) != "" {
		return fmt.Sprintf("%s-%s", showSlug, FromTitle(*entry.Name))
	}
	return fmt.Sprintf("%s-%s", showSlug, entry.Kind)
}

// Track returns the slug of a track: the entry slug, the language (or "und"), the
// index when it is not the first track of its kind, a forced marker and the type.
func Track(entrySlug string, language *string, index int, forced bool, trackType string) string {
	lang := "und"
	if language != nil && *language != "" {
		lang = strings.ToLower(*language)
	}
	var b strings.Builder
	b.WriteString(entrySlug)
	b.WriteString(".")
	b.WriteString(lang)
	if index != 0 {
		fmt.Fprintf(&b, "-%d", index)
	}
	if forced {
		b.WriteString(".forced")
	}
	b.WriteString(".")
	b.WriteString(trackType)
	return b.String()
}

// EntryVideo returns the slug of the join between an entry and one of its videos.
// The rendering is only part of the slug when the entry already has another
// rendering attached.
func EntryVideo(entrySlug string, part *int, rendering string, version int, otherRendering bool) string {
	var b strings.Builder
	b.WriteString(entrySlug)
	if part != nil {
		fmt.Fprintf(&b, "-p%d", *part)
	}
	if otherRendering {
		b.WriteString("-")
		b.WriteString(rendering)
	}
	if version != 1 {
		fmt.Fprintf(&b, "-v%d", version)
	}
	return b.String()
}

// ReplacePrefix rewrites a derived slug whose parent slug changed from oldPrefix to
// newPrefix. Slugs that do not start with the old prefix are returned unchanged.
func ReplacePrefix(slug, oldPrefix, newPrefix string) string {
	if !strings.HasPrefix(slug, oldPrefix) {
		return slug
	}
	return newPrefix + strings.TrimPrefix(slug, oldPrefix)
}

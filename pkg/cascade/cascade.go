// Package cascade keeps derived slugs and availability counters in line with the
// rows they depend on. Every function runs on the caller's connection or transaction
// and must be called before the triggering write commits.
package cascade

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

// parked prefixes the temporary slugs rows hold while a whole family is rewritten.
// slugs.FromTitle never produces it.
const parked = "~"

// ShowSlugChanged rewrites the slugs of everything below a show after the show's slug
// went from oldSlug to its current value. Seasons and numbered entries are derived
// again from their numbers. Extras, unknown entries and video joins keep their
// suffix with the new prefix.
func ShowSlugChanged(ctx context.Context, db bun.IDB, showID int, oldSlug string) error {
	show := &models.Show{}
	err := db.NewSelect().Model(show).Column("sh.id", "sh.slug").Where("sh.id = ?", showID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if show.Slug == oldSlug {
		return nil
	}

	seasons := []*models.Season{}
	err = db.NewSelect().Model(&seasons).Where("se.show_id = ?", showID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	entries := []*models.Entry{}
	err = db.NewSelect().Model(&entries).Where("e.show_id = ?", showID).Order("e.id ASC").Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	// Park first so that the new slugs never collide with the old ones of siblings.
	_, err = db.NewRaw("UPDATE seasons SET slug = ? || id WHERE show_id = ?", parked, showID).Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = db.NewRaw("UPDATE entries SET slug = ? || id WHERE show_id = ?", parked, showID).Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, season := range seasons {
		err = setSlug(ctx, db, "seasons", season.ID, slugs.Season(show.Slug, season.SeasonNumber))
		if err != nil {
			return err
		}
	}

	for _, entry := range entries {
		var newSlug string
		if isNumbered(entry.Kind) {
			newSlug, err = setDerivedSlug(ctx, db, entry.ID, slugs.Entry(show.Slug, entry))
		} else {
			newSlug = slugs.ReplacePrefix(entry.Slug, oldSlug, show.Slug)
			err = setSlug(ctx, db, "entries", entry.ID, newSlug)
		}
		if err != nil {
			return err
		}
		err = rewriteDependents(ctx, db, entry.ID, entry.Slug, newSlug)
		if err != nil {
			return err
		}
	}

	return nil
}

// SeasonChanged derives the slug of a season again from its show and number.
func SeasonChanged(ctx context.Context, db bun.IDB, seasonID int) error {
	season := &models.Season{}
	err := db.NewSelect().Model(season).Relation("Show").Where("se.id = ?", seasonID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	newSlug := slugs.Season(season.Show.Slug, season.SeasonNumber)
	if newSlug == season.Slug {
		return nil
	}
	return setSlug(ctx, db, "seasons", season.ID, newSlug)
}

// EntryChanged derives the slug of an entry again from its show and numbering, then
// rewrites its video joins and tracks. Numbered entries get the exact slug of their
// numbers, disambiguated when another show's entry holds it. Extras and unknown
// entries keep their slug while it still derives from their name, and are
// disambiguated otherwise.
func EntryChanged(ctx context.Context, db bun.IDB, entryID int) error {
	entry := &models.Entry{}
	err := db.NewSelect().Model(entry).Relation("Show").Where("e.id = ?", entryID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	showSlug := ""
	if entry.ShowID != nil && entry.Show != nil {
		showSlug = entry.Show.Slug
	}
	base := slugs.Entry(showSlug, entry)

	oldSlug := entry.Slug
	newSlug := base
	if isNumbered(entry.Kind) {
		if newSlug != oldSlug {
			newSlug, err = setDerivedSlug(ctx, db, entry.ID, base)
			if err != nil {
				return err
			}
		}
	} else if !derivesFrom(oldSlug, base) {
		newSlug, err = database.WithUniqueSlug(ctx, db, "entries.slug", base, nil, func(ctx context.Context, tx bun.IDB, slug string) error {
			return setSlug(ctx, tx, "entries", entry.ID, slug)
		})
		if err != nil {
			return err
		}
	} else {
		newSlug = oldSlug
	}

	return rewriteDependents(ctx, db, entry.ID, oldSlug, newSlug)
}

// TrackChanged derives the slug of a track again. With reindex, the track is first
// given the next free index of its (entry, type, language, forced) group, which is
// the number of tracks already in that group when indexes are dense. Without it, the
// stored index is kept.
func TrackChanged(ctx context.Context, db bun.IDB, trackID int, reindex bool) error {
	track := &models.Track{}
	err := db.NewSelect().Model(track).Relation("Entry").Where("t.id = ?", trackID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	if reindex {
		var next int
		err = db.NewSelect().
			Model((*models.Track)(nil)).
			ColumnExpr("COALESCE(MAX(t.track_index) + 1, 0)").
			Where("t.entry_id = ?", track.EntryID).
			Where("t.type = ?", track.Type).
			Where("COALESCE(t.language, '') = ?", stringValue(track.Language)).
			Where("t.is_forced = ?", track.IsForced).
			Where("t.id != ?", track.ID).
			Scan(ctx, &next)
		if err != nil {
			return errors.WithStack(err)
		}
		track.TrackIndex = next
	}

	newSlug := slugs.Track(track.Entry.Slug, track.Language, track.TrackIndex, track.IsForced, track.Type)
	_, err = db.NewRaw("UPDATE tracks SET slug = ?, track_index = ? WHERE id = ?", newSlug, track.TrackIndex, track.ID).Exec(ctx)
	return errors.WithStack(err)
}

// RecountShows recomputes the available counts of the given shows and of their
// seasons. An entry is available when it has at least one video. Extras are not
// counted.
func RecountShows(ctx context.Context, db bun.IDB, showIDs []int) error {
	if len(showIDs) == 0 {
		return nil
	}

	_, err := db.NewRaw(`
		UPDATE shows SET available_count = (
			SELECT COUNT(*) FROM entries
			WHERE entries.show_id = shows.id
				AND entries.kind != ?
				AND EXISTS (SELECT 1 FROM entry_videos WHERE entry_videos.entry_id = entries.id)
		)
		WHERE id IN (?)
	`, models.EntryKindExtra, bun.In(showIDs)).Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = db.NewRaw(`
		UPDATE seasons SET available_count = (
			SELECT COUNT(*) FROM entries
			WHERE entries.show_id = seasons.show_id
				AND entries.season_number = seasons.season_number
				AND entries.kind != ?
				AND EXISTS (SELECT 1 FROM entry_videos WHERE entry_videos.entry_id = entries.id)
		)
		WHERE show_id IN (?)
	`, models.EntryKindExtra, bun.In(showIDs)).Exec(ctx)
	return errors.WithStack(err)
}

// MarkAvailable sets the available since date of the given entries that have a video
// and did not have one before.
func MarkAvailable(ctx context.Context, db bun.IDB, entryIDs []int, now time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}

	_, err := db.NewRaw(`
		UPDATE entries SET available_since = ?
		WHERE id IN (?)
			AND available_since IS NULL
			AND EXISTS (SELECT 1 FROM entry_videos WHERE entry_videos.entry_id = entries.id)
	`, now, bun.In(entryIDs)).Exec(ctx)
	return errors.WithStack(err)
}

// ClearUnavailable clears the available since date of the given entries that are left
// without any video.
func ClearUnavailable(ctx context.Context, db bun.IDB, entryIDs []int) error {
	if len(entryIDs) == 0 {
		return nil
	}

	_, err := db.NewRaw(`
		UPDATE entries SET available_since = NULL
		WHERE id IN (?)
			AND available_since IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM entry_videos WHERE entry_videos.entry_id = entries.id)
	`, bun.In(entryIDs)).Exec(ctx)
	return errors.WithStack(err)
}

// ShowIDsForEntries returns the distinct shows the given entries belong to.
func ShowIDsForEntries(ctx context.Context, db bun.IDB, entryIDs []int) ([]int, error) {
	showIDs := []int{}
	if len(entryIDs) == 0 {
		return showIDs, nil
	}

	err := db.NewSelect().
		Model((*models.Entry)(nil)).
		ColumnExpr("DISTINCT e.show_id").
		Where("e.id IN (?)", bun.In(entryIDs)).
		Where("e.show_id IS NOT NULL").
		Order("e.show_id ASC").
		Scan(ctx, &showIDs)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return showIDs, nil
}

// rewriteDependents updates the video joins and tracks of an entry whose slug went
// from oldSlug to newSlug.
func rewriteDependents(ctx context.Context, db bun.IDB, entryID int, oldSlug, newSlug string) error {
	if oldSlug != newSlug {
		joins := []*models.EntryVideo{}
		err := db.NewSelect().Model(&joins).Where("ev.entry_id = ?", entryID).Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.NewRaw("UPDATE entry_videos SET slug = ? || video_id WHERE entry_id = ?", parked, entryID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		for _, join := range joins {
			_, err = db.NewRaw(
				"UPDATE entry_videos SET slug = ? WHERE entry_id = ? AND video_id = ?",
				slugs.ReplacePrefix(join.Slug, oldSlug, newSlug), join.EntryID, join.VideoID,
			).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
	}

	tracks := []*models.Track{}
	err := db.NewSelect().Model(&tracks).Where("t.entry_id = ?", entryID).Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(tracks) == 0 {
		return nil
	}
	_, err = db.NewRaw("UPDATE tracks SET slug = ? || id WHERE entry_id = ?", parked, entryID).Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, track := range tracks {
		err = setSlug(ctx, db, "tracks", track.ID, slugs.Track(newSlug, track.Language, track.TrackIndex, track.IsForced, track.Type))
		if err != nil {
			return err
		}
	}
	return nil
}

func setSlug(ctx context.Context, db bun.IDB, table string, id int, slug string) error {
	_, err := db.NewRaw(fmt.Sprintf("UPDATE %s SET slug = ? WHERE id = ?", table), slug, id).Exec(ctx)
	return errors.WithStack(err)
}

// isNumbered reports whether the slug of an entry kind is fully determined by its
// show and numbers.
func isNumbered(kind string) bool {
	switch kind {
	case models.EntryKindEpisode, models.EntryKindSpecial, models.EntryKindMovie:
		return true
	}
	return false
}

var counterSuffixRE = regexp.MustCompile(`^-\d+$`)

// setDerivedSlug gives an entry the first free slug derived from base.
func setDerivedSlug(ctx context.Context, db bun.IDB, entryID int, base string) (string, error) {
	return database.WithUniqueSlug(ctx, db, "entries.slug", base, nil, func(ctx context.Context, tx bun.IDB, slug string) error {
		return setSlug(ctx, tx, "entries", entryID, slug)
	})
}

// derivesFrom reports whether slug is base or one of its disambiguated forms.
func derivesFrom(slug, base string) bool {
	if slug == base {
		return true
	}
	if len(slug) <= len(base) || slug[:len(base)] != base {
		return false
	}
	return counterSuffixRE.MatchString(slug[len(base):])
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

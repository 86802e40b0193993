package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func insert(t *testing.T, db bun.IDB, model interface{}) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Returning("*").Exec(context.Background())
	require.NoError(t, err)
}

func slugOf(t *testing.T, db bun.IDB, table string, id int) string {
	t.Helper()
	var slug string
	err := db.NewRaw("SELECT slug FROM "+table+" WHERE id = ?", id).Scan(context.Background(), &slug)
	require.NoError(t, err)
	return slug
}

func newShow(t *testing.T, db bun.IDB, slug string) *models.Show {
	t.Helper()
	show := &models.Show{Kind: models.ShowKindSerie, Slug: slug, Name: slug, SortName: slug, Status: models.ShowStatusUnknown}
	insert(t, db, show)
	return show
}

func newEpisode(t *testing.T, db bun.IDB, show *models.Show, season, episode int) *models.Entry {
	t.Helper()
	entry := &models.Entry{
		Kind:          models.EntryKindEpisode,
		ShowID:        &show.ID,
		SeasonNumber:  &season,
		EpisodeNumber: &episode,
	}
	entry.Slug = slugs.Entry(show.Slug, entry)
	insert(t, db, entry)
	return entry
}

func newVideo(t *testing.T, db bun.IDB, path, rendering string) *models.Video {
	t.Helper()
	video := &models.Video{Path: path, Rendering: rendering, Version: 1, Guess: models.Guess{Title: "x"}}
	insert(t, db, video)
	return video
}

func TestShowSlugChanged(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "made-in-abyss")
	season := &models.Season{ShowID: show.ID, SeasonNumber: 1, Slug: "made-in-abyss-s1"}
	insert(t, db, season)
	episode := newEpisode(t, db, show, 1, 1)
	extra := &models.Entry{Kind: models.EntryKindExtra, ShowID: &show.ID, Name: pointerutil.String("Trailer"), Slug: "made-in-abyss-trailer-2"}
	insert(t, db, extra)
	video := newVideo(t, db, "/lib/abyss/e01.mkv", "abc")
	insert(t, db, &models.EntryVideo{EntryID: episode.ID, VideoID: video.ID, Slug: "made-in-abyss-s1e1"})
	track := &models.Track{EntryID: episode.ID, Type: models.TrackTypeSubtitle, Language: pointerutil.String("eng"), Codec: "subrip", Slug: "made-in-abyss-s1e1.eng.subtitle"}
	insert(t, db, track)

	_, err := db.NewUpdate().Model(show).Set("slug = ?", "abyss").WherePK().Exec(ctx)
	require.NoError(t, err)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return ShowSlugChanged(ctx, tx, show.ID, "made-in-abyss")
	})
	require.NoError(t, err)

	assert.Equal(t, "abyss-s1", slugOf(t, db, "seasons", season.ID))
	assert.Equal(t, "abyss-s1e1", slugOf(t, db, "entries", episode.ID))
	assert.Equal(t, "abyss-trailer-2", slugOf(t, db, "entries", extra.ID))
	assert.Equal(t, "abyss-s1e1.eng.subtitle", slugOf(t, db, "tracks", track.ID))

	var joinSlug string
	err = db.NewRaw("SELECT slug FROM entry_videos WHERE entry_id = ?", episode.ID).Scan(ctx, &joinSlug)
	require.NoError(t, err)
	assert.Equal(t, "abyss-s1e1", joinSlug)

	count, err := db.NewSelect().Model((*models.Entry)(nil)).Where("slug LIKE ?", "made-in-abyss%").Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestShowSlugChanged_EntrySlugTakenByAnotherShow(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	movie := &models.Show{Kind: models.ShowKindMovie, Slug: "bar-2", Name: "Bar", SortName: "Bar", Status: models.ShowStatusUnknown}
	insert(t, db, movie)
	insert(t, db, &models.Entry{Kind: models.EntryKindMovie, ShowID: &movie.ID, Slug: "bar-2"})

	show := newShow(t, db, "foo")
	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, AbsoluteNumber: pointerutil.Int(2), Slug: "foo-2"}
	insert(t, db, entry)

	_, err := db.NewUpdate().Model(show).Set("slug = ?", "bar").WherePK().Exec(ctx)
	require.NoError(t, err)
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return ShowSlugChanged(ctx, tx, show.ID, "foo")
	})
	require.NoError(t, err)

	assert.Equal(t, "bar-2-2", slugOf(t, db, "entries", entry.ID))

	// Once the slug is free again the entry gets its plain slug back.
	_, err = db.NewDelete().Model((*models.Show)(nil)).Where("id = ?", movie.ID).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewDelete().Model((*models.Entry)(nil)).Where("show_id = ?", movie.ID).Exec(ctx)
	require.NoError(t, err)
	entry.AbsoluteNumber = pointerutil.Int(3)
	_, err = db.NewUpdate().Model(entry).Column("absolute_number").WherePK().Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, EntryChanged(ctx, db, entry.ID))
	assert.Equal(t, "bar-3", slugOf(t, db, "entries", entry.ID))
}

func TestShowSlugChanged_Unchanged(t *testing.T) {
	db := testutils.NewDB(t)
	show := newShow(t, db, "bubble")

	require.NoError(t, ShowSlugChanged(context.Background(), db, show.ID, "bubble"))
}

func TestEntryChanged_NumberingRoundTrip(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "one-piece")
	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, AbsoluteNumber: pointerutil.Int(12), Slug: "one-piece-12"}
	insert(t, db, entry)
	video := newVideo(t, db, "/lib/op/12.mkv", "r12")
	insert(t, db, &models.EntryVideo{EntryID: entry.ID, VideoID: video.ID, Slug: "one-piece-12-v2"})

	entry.AbsoluteNumber = nil
	entry.SeasonNumber = pointerutil.Int(1)
	entry.EpisodeNumber = pointerutil.Int(2)
	_, err := db.NewUpdate().Model(entry).Column("absolute_number", "season_number", "episode_number").WherePK().Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, EntryChanged(ctx, db, entry.ID))
	assert.Equal(t, "one-piece-s1e2", slugOf(t, db, "entries", entry.ID))

	var joinSlug string
	require.NoError(t, db.NewRaw("SELECT slug FROM entry_videos WHERE entry_id = ?", entry.ID).Scan(ctx, &joinSlug))
	assert.Equal(t, "one-piece-s1e2-v2", joinSlug)

	entry.AbsoluteNumber = pointerutil.Int(12)
	entry.SeasonNumber = nil
	entry.EpisodeNumber = nil
	_, err = db.NewUpdate().Model(entry).Column("absolute_number", "season_number", "episode_number").WherePK().Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, EntryChanged(ctx, db, entry.ID))
	assert.Equal(t, "one-piece-12", slugOf(t, db, "entries", entry.ID))
}

func TestEntryChanged_ExtraKeepsDisambiguatedSlug(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "dune")
	first := &models.Entry{Kind: models.EntryKindExtra, ShowID: &show.ID, Name: pointerutil.String("Trailer"), Slug: "dune-trailer"}
	insert(t, db, first)
	second := &models.Entry{Kind: models.EntryKindExtra, ShowID: &show.ID, Name: pointerutil.String("Trailer"), Slug: "dune-trailer-2"}
	insert(t, db, second)

	require.NoError(t, EntryChanged(ctx, db, second.ID))
	assert.Equal(t, "dune-trailer-2", slugOf(t, db, "entries", second.ID))

	_, err := db.NewRaw("UPDATE entries SET name = ? WHERE id = ?", "Teaser", first.ID).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, EntryChanged(ctx, db, first.ID))
	assert.Equal(t, "dune-teaser", slugOf(t, db, "entries", first.ID))

	_, err = db.NewRaw("UPDATE entries SET name = ? WHERE id = ?", "Teaser", second.ID).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, EntryChanged(ctx, db, second.ID))
	assert.Equal(t, "dune-teaser-2", slugOf(t, db, "entries", second.ID))
}

func TestSeasonChanged(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "frieren")
	season := &models.Season{ShowID: show.ID, SeasonNumber: 1, Slug: "frieren-s1"}
	insert(t, db, season)

	_, err := db.NewRaw("UPDATE seasons SET season_number = 2 WHERE id = ?", season.ID).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, SeasonChanged(ctx, db, season.ID))
	assert.Equal(t, "frieren-s2", slugOf(t, db, "seasons", season.ID))
}

func TestTrackChanged(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "bleach")
	entry := newEpisode(t, db, show, 1, 3)

	first := &models.Track{EntryID: entry.ID, Type: models.TrackTypeSubtitle, Language: pointerutil.String("eng"), Codec: "ass", Slug: "~a"}
	insert(t, db, first)
	require.NoError(t, TrackChanged(ctx, db, first.ID, true))
	second := &models.Track{EntryID: entry.ID, Type: models.TrackTypeSubtitle, Language: pointerutil.String("eng"), Codec: "ass", Slug: "~b"}
	insert(t, db, second)
	require.NoError(t, TrackChanged(ctx, db, second.ID, true))
	forced := &models.Track{EntryID: entry.ID, Type: models.TrackTypeSubtitle, Language: pointerutil.String("eng"), IsForced: true, Codec: "ass", Slug: "~c"}
	insert(t, db, forced)
	require.NoError(t, TrackChanged(ctx, db, forced.ID, true))

	assert.Equal(t, "bleach-s1e3.eng.subtitle", slugOf(t, db, "tracks", first.ID))
	assert.Equal(t, "bleach-s1e3.eng-1.subtitle", slugOf(t, db, "tracks", second.ID))
	assert.Equal(t, "bleach-s1e3.eng.forced.subtitle", slugOf(t, db, "tracks", forced.ID))

	// The index is stable when nothing in the group changes.
	require.NoError(t, TrackChanged(ctx, db, second.ID, false))
	assert.Equal(t, "bleach-s1e3.eng-1.subtitle", slugOf(t, db, "tracks", second.ID))

	_, err := db.NewRaw("UPDATE tracks SET language = ? WHERE id = ?", "fra", second.ID).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, TrackChanged(ctx, db, second.ID, true))
	assert.Equal(t, "bleach-s1e3.fra.subtitle", slugOf(t, db, "tracks", second.ID))
}

func TestRecountShows(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "monster")
	other := newShow(t, db, "pluto")
	season := &models.Season{ShowID: show.ID, SeasonNumber: 1, Slug: "monster-s1"}
	insert(t, db, season)
	e1 := newEpisode(t, db, show, 1, 1)
	newEpisode(t, db, show, 1, 2)
	extra := &models.Entry{Kind: models.EntryKindExtra, ShowID: &show.ID, Name: pointerutil.String("Opening"), Slug: "monster-opening"}
	insert(t, db, extra)
	o1 := newEpisode(t, db, other, 1, 1)

	v1 := newVideo(t, db, "/lib/monster/1.mkv", "r1")
	v2 := newVideo(t, db, "/lib/monster/op.mkv", "r2")
	v3 := newVideo(t, db, "/lib/pluto/1.mkv", "r3")
	insert(t, db, &models.EntryVideo{EntryID: e1.ID, VideoID: v1.ID, Slug: "monster-s1e1"})
	insert(t, db, &models.EntryVideo{EntryID: extra.ID, VideoID: v2.ID, Slug: "monster-opening"})
	insert(t, db, &models.EntryVideo{EntryID: o1.ID, VideoID: v3.ID, Slug: "pluto-s1e1"})

	require.NoError(t, RecountShows(ctx, db, []int{show.ID}))

	var count int
	require.NoError(t, db.NewRaw("SELECT available_count FROM shows WHERE id = ?", show.ID).Scan(ctx, &count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.NewRaw("SELECT available_count FROM seasons WHERE id = ?", season.ID).Scan(ctx, &count))
	assert.Equal(t, 1, count)

	// Shows that were not listed are left alone.
	require.NoError(t, db.NewRaw("SELECT available_count FROM shows WHERE id = ?", other.ID).Scan(ctx, &count))
	assert.Equal(t, 0, count)

	require.NoError(t, RecountShows(ctx, db, nil))
}

func TestAvailability(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := context.Background()

	show := newShow(t, db, "akira")
	withVideo := newEpisode(t, db, show, 1, 1)
	without := newEpisode(t, db, show, 1, 2)
	video := newVideo(t, db, "/lib/akira.mkv", "r")
	insert(t, db, &models.EntryVideo{EntryID: withVideo.ID, VideoID: video.ID, Slug: "akira-s1e1"})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, MarkAvailable(ctx, db, []int{withVideo.ID, without.ID}, now))

	entries := []*models.Entry{}
	require.NoError(t, db.NewSelect().Model(&entries).Order("e.id ASC").Scan(ctx))
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].AvailableSince)
	assert.True(t, entries[0].AvailableSince.Equal(now))
	assert.Nil(t, entries[1].AvailableSince)

	// Marking again keeps the first date.
	require.NoError(t, MarkAvailable(ctx, db, []int{withVideo.ID}, now.Add(time.Hour)))
	entry := &models.Entry{}
	require.NoError(t, db.NewSelect().Model(entry).Where("e.id = ?", withVideo.ID).Scan(ctx))
	assert.True(t, entry.AvailableSince.Equal(now))

	_, err := db.NewRaw("DELETE FROM entry_videos WHERE entry_id = ?", withVideo.ID).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, ClearUnavailable(ctx, db, []int{withVideo.ID}))
	require.NoError(t, db.NewSelect().Model(entry).Where("e.id = ?", withVideo.ID).Scan(ctx))
	assert.Nil(t, entry.AvailableSince)

	showIDs, err := ShowIDsForEntries(ctx, db, []int{withVideo.ID, without.ID})
	require.NoError(t, err)
	assert.Equal(t, []int{show.ID}, showIDs)
}

func TestDerivesFrom(t *testing.T) {
	assert.True(t, derivesFrom("dune-trailer", "dune-trailer"))
	assert.True(t, derivesFrom("dune-trailer-12", "dune-trailer"))
	assert.False(t, derivesFrom("dune-trailers", "dune-trailer"))
	assert.False(t, derivesFrom("dune-trailer-x", "dune-trailer"))
	assert.False(t, derivesFrom("dune", "dune-trailer"))
}

package videos

import (
	"context"
	"strconv"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type catalog struct {
	serie    *models.Show
	movie    *models.Show
	episode  *models.Entry
	absolute *models.Entry
	special  *models.Entry
	bubble   *models.Entry
}

func insert(t *testing.T, db bun.IDB, model interface{}) {
	t.Helper()
	_, err := db.NewInsert().Model(model).Returning("*").Exec(context.Background())
	require.NoError(t, err)
}

func newCatalog(t *testing.T, db bun.IDB) *catalog {
	t.Helper()
	c := &catalog{
		serie: &models.Show{Kind: models.ShowKindSerie, Slug: "made-in-abyss", Name: "Made in Abyss", SortName: "Made in Abyss", Status: models.ShowStatusFinished},
		movie: &models.Show{Kind: models.ShowKindMovie, Slug: "bubble", Name: "Bubble", SortName: "Bubble", Status: models.ShowStatusFinished},
	}
	insert(t, db, c.serie)
	insert(t, db, c.movie)

	c.episode = &models.Entry{Kind: models.EntryKindEpisode, ShowID: &c.serie.ID, Slug: "made-in-abyss-s1e13", SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(13)}
	c.absolute = &models.Entry{Kind: models.EntryKindEpisode, ShowID: &c.serie.ID, Slug: "made-in-abyss-26", AbsoluteNumber: pointerutil.Int(26)}
	c.special = &models.Entry{Kind: models.EntryKindSpecial, ShowID: &c.serie.ID, Slug: "made-in-abyss-sp1", EpisodeNumber: pointerutil.Int(1), Order: pointerutil.Float64(13.5)}
	c.bubble = &models.Entry{Kind: models.EntryKindMovie, ShowID: &c.movie.ID, Slug: "bubble"}
	for _, e := range []*models.Entry{c.episode, c.absolute, c.special, c.bubble} {
		insert(t, db, e)
	}
	return c
}

func retrieveEntry(t *testing.T, db bun.IDB, id int) *models.Entry {
	t.Helper()
	entry := &models.Entry{}
	require.NoError(t, db.NewSelect().Model(entry).Where("e.id = ?", id).Scan(context.Background()))
	return entry
}

func retrieveShow(t *testing.T, db bun.IDB, id int) *models.Show {
	t.Helper()
	show := &models.Show{}
	require.NoError(t, db.NewSelect().Model(show).Where("sh.id = ?", id).Scan(context.Background()))
	return show
}

func slugsOf(v *RegisteredVideo) []string {
	out := []string{}
	for _, j := range v.Entries {
		out = append(out, j.Slug)
	}
	return out
}

func TestResolveHint(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	c := newCatalog(t, db)

	require.NoError(t, externalids.Save(ctx, db, models.ResourceEntry, c.absolute.ID, map[string]models.ExternalID{
		"tmdb": {DataID: "4242"},
	}))

	tests := []struct {
		name string
		hint Hint
		slug string
	}{
		{"slug", Hint{Slug: pointerutil.String("made-in-abyss-s1e13")}, "made-in-abyss-s1e13"},
		{"movie by slug", Hint{Movie: pointerutil.String("bubble")}, "bubble"},
		{"movie by id", Hint{Movie: pointerutil.String(strconv.Itoa(c.movie.ID))}, "bubble"},
		{"season and episode", Hint{Serie: pointerutil.String("made-in-abyss"), Season: pointerutil.Int(1), Episode: pointerutil.Int(13)}, "made-in-abyss-s1e13"},
		{"absolute", Hint{Serie: pointerutil.String("made-in-abyss"), Absolute: pointerutil.Int(26)}, "made-in-abyss-26"},
		{"order", Hint{Serie: pointerutil.String("made-in-abyss"), Order: pointerutil.Float64(13.5)}, "made-in-abyss-sp1"},
		{"special", Hint{Serie: pointerutil.String("made-in-abyss"), Special: pointerutil.Int(1)}, "made-in-abyss-sp1"},
		{"external id", Hint{ExternalID: map[string]string{"tmdb": "4242"}}, "made-in-abyss-26"},
		{"slug wins over the rest", Hint{Slug: pointerutil.String("bubble"), Serie: pointerutil.String("made-in-abyss"), Special: pointerutil.Int(1)}, "bubble"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, via, err := resolveHint(ctx, db, tt.hint)
			require.NoError(t, err)
			require.Len(t, entries, 1, "resolved %d through %q", i, via)
			assert.Equal(t, tt.slug, entries[0].Slug)
		})
	}

	entries, via, err := resolveHint(ctx, db, Hint{Serie: pointerutil.String("made-in-abyss"), Season: pointerutil.Int(2), Episode: pointerutil.Int(1)})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, via)
}

func TestRegister(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	c := newCatalog(t, db)

	result, err := svc.Register(ctx, []SeedVideo{
		{
			Path:      "/lib/Made in Abyss/S01E13.mkv",
			Rendering: "bd",
			Guess:     models.Guess{Title: "Made in Abyss", Kind: models.GuessKindEpisode},
			For:       []Hint{{Serie: pointerutil.String("made-in-abyss"), Season: pointerutil.Int(1), Episode: pointerutil.Int(13)}},
		},
		{
			Path:  "/lib/Bubble (2022).mkv",
			Guess: models.Guess{Title: "Bubble", Kind: models.GuessKindMovie, Years: []int{2022}},
			For:   []Hint{{Movie: pointerutil.String("bubble")}},
		},
		{
			Path:  "/lib/Something Else.mkv",
			Guess: models.Guess{Title: "Something Else"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Videos, 3)
	assert.Equal(t, []string{"made-in-abyss-s1e13"}, slugsOf(result.Videos[0]))
	assert.Equal(t, []string{"bubble"}, slugsOf(result.Videos[1]))
	assert.Empty(t, result.Videos[2].Entries)
	assert.Equal(t, []string{"/lib/Something Else.mkv"}, result.Unmatched)
	assert.Empty(t, result.Conflicts)

	assert.NotNil(t, retrieveEntry(t, db, c.episode.ID).AvailableSince)
	assert.Nil(t, retrieveEntry(t, db, c.absolute.ID).AvailableSince)
	assert.Equal(t, 1, retrieveShow(t, db, c.serie.ID).AvailableCount)
	assert.Equal(t, 1, retrieveShow(t, db, c.movie.ID).AvailableCount)

	derived, err := svc.RetrieveVideo(ctx, RetrieveVideoOptions{Path: pointerutil.String("/lib/Bubble (2022).mkv")})
	require.NoError(t, err)
	assert.Equal(t, Rendering("/lib/Bubble (2022).mkv"), derived.Rendering)
	assert.Equal(t, 1, derived.Version)
}

func TestRegister_JoinSlugs(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	newCatalog(t, db)

	hint := []Hint{{Slug: pointerutil.String("made-in-abyss-s1e13")}}
	result, err := svc.Register(ctx, []SeedVideo{
		{Path: "/lib/mia/s1e13.mkv", Rendering: "bd", For: hint},
		{Path: "/lib/mia/s1e13 v2.mkv", Rendering: "bd", Version: 2, For: hint},
		{Path: "/lib/mia/s1e13 part 2.mkv", Rendering: "bd", Part: pointerutil.Int(2), For: hint},
		{Path: "/lib/mia/s1e13 web.mkv", Rendering: "web", For: hint},
	})
	require.NoError(t, err)
	require.Len(t, result.Videos, 4)

	assert.Equal(t, []string{"made-in-abyss-s1e13"}, slugsOf(result.Videos[0]))
	assert.Equal(t, []string{"made-in-abyss-s1e13-v2"}, slugsOf(result.Videos[1]))
	assert.Equal(t, []string{"made-in-abyss-s1e13-p2"}, slugsOf(result.Videos[2]))
	assert.Equal(t, []string{"made-in-abyss-s1e13-web"}, slugsOf(result.Videos[3]))

	// A second registration keeps the join slugs it created the first time.
	again, err := svc.Register(ctx, []SeedVideo{{Path: "/lib/mia/s1e13.mkv", Rendering: "bd", For: hint}})
	require.NoError(t, err)
	require.Len(t, again.Videos, 1)
	assert.Equal(t, result.Videos[0].ID, again.Videos[0].ID)
	assert.Equal(t, []string{"made-in-abyss-s1e13"}, slugsOf(again.Videos[0]))

	// Without hints the existing joins are reported and the video is not unmatched.
	bare, err := svc.Register(ctx, []SeedVideo{{Path: "/lib/mia/s1e13 web.mkv", Rendering: "web"}})
	require.NoError(t, err)
	require.Len(t, bare.Videos, 1)
	assert.Equal(t, []string{"made-in-abyss-s1e13-web"}, slugsOf(bare.Videos[0]))
	assert.Empty(t, bare.Unmatched)
}

func TestRegister_ConflictingRendering(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	c := newCatalog(t, db)

	result, err := svc.Register(ctx, []SeedVideo{
		{Path: "/lib/a.mkv", Rendering: "same", For: []Hint{{Movie: pointerutil.String("bubble")}}},
		{Path: "/lib/b.mkv", Rendering: "same"},
		{Path: "/lib/c.mkv", Rendering: "other", For: []Hint{{Slug: pointerutil.String("made-in-abyss-26")}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/b.mkv"}, result.Conflicts)
	require.Len(t, result.Videos, 2)
	assert.Equal(t, "/lib/a.mkv", result.Videos[0].Path)
	assert.Equal(t, "/lib/c.mkv", result.Videos[1].Path)
	assert.Equal(t, 1, retrieveShow(t, db, c.serie.ID).AvailableCount)

	_, err = svc.RetrieveVideo(ctx, RetrieveVideoOptions{Path: pointerutil.String("/lib/b.mkv")})
	assert.Error(t, err)
}

func TestRegister_Empty(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	result, err := svc.Register(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Videos)

	count, err := db.NewSelect().Model((*models.Video)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDelete(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	c := newCatalog(t, db)

	hint := []Hint{{Slug: pointerutil.String("made-in-abyss-s1e13")}}
	_, err := svc.Register(ctx, []SeedVideo{
		{Path: "/lib/mia/s1e13.mkv", Rendering: "bd", For: hint},
		{Path: "/lib/mia/s1e13 web.mkv", Rendering: "web", For: hint},
	})
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, []string{"/lib/mia/s1e13.mkv", "/lib/missing.mkv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/mia/s1e13.mkv"}, removed)
	assert.NotNil(t, retrieveEntry(t, db, c.episode.ID).AvailableSince)
	assert.Equal(t, 1, retrieveShow(t, db, c.serie.ID).AvailableCount)

	removed, err = svc.Delete(ctx, []string{"/lib/mia/s1e13 web.mkv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lib/mia/s1e13 web.mkv"}, removed)
	assert.Nil(t, retrieveEntry(t, db, c.episode.ID).AvailableSince)
	assert.Equal(t, 0, retrieveShow(t, db, c.serie.ID).AvailableCount)

	joins, err := db.NewSelect().Model((*models.EntryVideo)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, joins)
}

func TestLink(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	c := newCatalog(t, db)

	result, err := svc.Register(ctx, []SeedVideo{{Path: "/lib/mia/special.mkv", Guess: models.Guess{Title: "Made in Abyss"}}})
	require.NoError(t, err)
	require.Len(t, result.Unmatched, 1)

	linked, err := svc.Link(ctx, []LinkRequest{{
		VideoID: result.Videos[0].ID,
		For:     []Hint{{Serie: pointerutil.String("made-in-abyss"), Special: pointerutil.Int(1)}},
	}})
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, []string{"made-in-abyss-sp1"}, slugsOf(linked[0]))
	assert.NotNil(t, retrieveEntry(t, db, c.special.ID).AvailableSince)

	_, err = svc.Link(ctx, []LinkRequest{{VideoID: 9999, For: []Hint{{Movie: pointerutil.String("bubble")}}}})
	assert.Error(t, err)
}

func TestGuessesAndUnmatched(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	c := newCatalog(t, db)

	_, err := svc.Register(ctx, []SeedVideo{
		{Path: "/lib/Made in Abyss S01E13.mkv", Rendering: "a", Guess: models.Guess{Title: "Made in Abyss"}, For: []Hint{{Slug: pointerutil.String("made-in-abyss-s1e13")}}},
		{Path: "/lib/Made in Abyss (2017) 26.mkv", Rendering: "b", Guess: models.Guess{Title: "Made in Abyss", Years: []int{2017}}, For: []Hint{{Slug: pointerutil.String("made-in-abyss-26")}}},
		{Path: "/lib/Clip.mkv", Rendering: "c", Guess: models.Guess{Title: "Clip"}},
	})
	require.NoError(t, err)

	summary, err := svc.Guesses(ctx)
	require.NoError(t, err)
	assert.Len(t, summary.Paths, 3)
	assert.Equal(t, []string{"/lib/Clip.mkv"}, summary.Unmatched)
	ref := ShowRef{ID: c.serie.ID, Slug: "made-in-abyss"}
	assert.Equal(t, map[string]map[string]ShowRef{
		"Made in Abyss": {"unknown": ref, "2017": ref},
	}, summary.Guesses)

	videos, total, err := svc.ListUnmatchedWithTotal(ctx, ListUnmatchedOptions{Limit: pointerutil.Int(10)})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, videos, 1)
	assert.Equal(t, "/lib/Clip.mkv", videos[0].Path)

	videos, err = svc.ListUnmatched(ctx, ListUnmatchedOptions{Search: pointerutil.String("abyss")})
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestRendering(t *testing.T) {
	assert.Equal(t, Rendering("/lib/Show S01E01.mkv"), Rendering("/lib/Show S01E01 v2.mkv"))
	assert.Equal(t, Rendering("/lib/Movie.mkv"), Rendering("/lib/Movie part 2.mkv"))
	assert.Equal(t, Rendering("/lib/Movie.mkv"), Rendering("/lib/Movie-pt1.mkv"))
	assert.NotEqual(t, Rendering("/lib/Movie 1080p.mkv"), Rendering("/lib/Movie 720p.mkv"))
	assert.Len(t, Rendering("/lib/a.mkv"), 64)
}

func TestMarkers(t *testing.T) {
	tests := []struct {
		path    string
		part    *int
		version int
	}{
		{"/lib/Movie.mkv", nil, 1},
		{"/lib/Movie part1.mkv", pointerutil.Int(1), 1},
		{"/lib/Movie-pt2.mkv", pointerutil.Int(2), 1},
		{"/lib/Movie v3.mkv", nil, 3},
		{"/lib/Movie part 2 v2.mkv", pointerutil.Int(2), 2},
		{"/lib/Movie 1080p.mkv", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			part, version := Markers(tt.path)
			assert.Equal(t, tt.part, part)
			assert.Equal(t, tt.version, version)
		})
	}
}

package entries

import (
	"context"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
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

func newShow(t *testing.T, db bun.IDB, slug string) *models.Show {
	t.Helper()
	show := &models.Show{Kind: models.ShowKindSerie, Slug: slug, Name: slug, SortName: slug, Status: models.ShowStatusUnknown}
	insert(t, db, show)
	return show
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	return codeErr.Code
}

func TestCreateEntry(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "made-in-abyss")

	tests := []struct {
		name  string
		entry *models.Entry
		slug  string
	}{
		{"episode", &models.Entry{Kind: models.EntryKindEpisode, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(2)}, "made-in-abyss-s1e2"},
		{"absolute", &models.Entry{Kind: models.EntryKindEpisode, AbsoluteNumber: pointerutil.Int(14)}, "made-in-abyss-14"},
		{"special", &models.Entry{Kind: models.EntryKindSpecial, EpisodeNumber: pointerutil.Int(1), Order: pointerutil.Float64(1.5)}, "made-in-abyss-sp1"},
		{"extra", &models.Entry{Kind: models.EntryKindExtra, Name: pointerutil.String("Trailer")}, "made-in-abyss-trailer"},
		{"second extra", &models.Entry{Kind: models.EntryKindExtra, Name: pointerutil.String("Trailer")}, "made-in-abyss-trailer-2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.entry.ShowID = &show.ID
			require.NoError(t, svc.CreateEntry(ctx, tt.entry))
			assert.Equal(t, tt.slug, tt.entry.Slug)
		})
	}

	err := svc.CreateEntry(ctx, &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(2)})
	assert.Equal(t, "conflict", codeOf(t, err))

	err = svc.CreateEntry(ctx, &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(3), AbsoluteNumber: pointerutil.Int(3)})
	assert.Equal(t, "validation_error", codeOf(t, err))

	err = svc.CreateEntry(ctx, &models.Entry{Kind: models.EntryKindEpisode, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(3)})
	assert.Equal(t, "validation_error", codeOf(t, err))
}

func TestCreateUnknownEntry(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	first, err := svc.CreateUnknownEntry(ctx, "/lib/misc/Some Clip.mkv")
	require.NoError(t, err)
	assert.Equal(t, "some-clip", first.Slug)
	assert.Nil(t, first.ShowID)

	second, err := svc.CreateUnknownEntry(ctx, "/lib/other/some clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "some-clip-2", second.Slug)
}

func TestUpdateEntry_NumberingRoundTrip(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "abyss")

	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(1)}
	require.NoError(t, svc.CreateEntry(ctx, entry))
	insert(t, db, &models.Track{EntryID: entry.ID, Type: models.TrackTypeAudio, Codec: "aac", Language: pointerutil.String("jpn"), Slug: "abyss-s1e1.jpn.audio"})

	numbering := []string{"season_number", "episode_number", "absolute_number", "episode_order"}
	steps := []struct {
		season, episode, absolute *int
		slug                      string
	}{
		{nil, nil, pointerutil.Int(12), "abyss-12"},
		{pointerutil.Int(1), pointerutil.Int(2), nil, "abyss-s1e2"},
		{pointerutil.Int(1), pointerutil.Int(1), nil, "abyss-s1e1"},
	}
	for _, step := range steps {
		entry.SeasonNumber = step.season
		entry.EpisodeNumber = step.episode
		entry.AbsoluteNumber = step.absolute
		require.NoError(t, svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: numbering}))

		got, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &entry.ID, WithTracks: true})
		require.NoError(t, err)
		assert.Equal(t, step.slug, got.Slug)
		require.Len(t, got.Tracks, 1)
		assert.Equal(t, step.slug+".jpn.audio", got.Tracks[0].Slug)
	}

	entry.SeasonNumber = pointerutil.Int(1)
	entry.EpisodeNumber = nil
	err := svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: numbering})
	assert.Equal(t, "validation_error", codeOf(t, err))
}

func TestUpdateEntry_Conflict(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "abyss")

	a := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(1)}
	require.NoError(t, svc.CreateEntry(ctx, a))
	b := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(2)}
	require.NoError(t, svc.CreateEntry(ctx, b))

	b.EpisodeNumber = pointerutil.Int(1)
	err := svc.UpdateEntry(ctx, b, UpdateEntryOptions{Columns: []string{"episode_number"}})
	assert.Equal(t, "conflict", codeOf(t, err))

	got, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, "abyss-s1e2", got.Slug)
}

func TestFindOrCreateEntry(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "abyss")

	calls := 0
	resolve := func(_ context.Context, seed *models.Entry, _ []string) *models.Entry {
		calls++
		out := *seed
		out.Name = pointerutil.String("Hello Abyss")
		out.EpisodeNumber = pointerutil.Int(99)
		return &out
	}

	seed := func() *models.Entry {
		return &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(1)}
	}

	created, isNew, err := svc.FindOrCreateEntry(ctx, seed(), resolve)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "abyss-s1e1", created.Slug)
	assert.Equal(t, "Hello Abyss", *created.Name)

	withDate := seed()
	withDate.AirDate = pointerutil.Time(time.Date(2017, 7, 7, 0, 0, 0, 0, time.UTC))
	found, isNew, err := svc.FindOrCreateEntry(ctx, withDate, resolve)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 1, calls)

	got, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &created.ID})
	require.NoError(t, err)
	require.NotNil(t, got.AirDate)
	assert.Equal(t, 2017, got.AirDate.Year())
}

func TestCreateEntry_SlugHeldByAnotherShow(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	show := newShow(t, db, "bar")
	movie := &models.Show{Kind: models.ShowKindMovie, Slug: "bar-2", Name: "Bar", SortName: "Bar", Status: models.ShowStatusUnknown}
	insert(t, db, movie)
	insert(t, db, &models.Entry{Kind: models.EntryKindMovie, ShowID: &movie.ID, Slug: "bar-2"})

	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, AbsoluteNumber: pointerutil.Int(2)}
	require.NoError(t, svc.CreateEntry(ctx, entry))
	assert.Equal(t, "bar-2-2", entry.Slug)

	found, isNew, err := svc.FindOrCreateEntry(ctx, &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, AbsoluteNumber: pointerutil.Int(2)}, nil)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, entry.ID, found.ID)

	created, isNew, err := svc.FindOrCreateEntry(ctx, &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, AbsoluteNumber: pointerutil.Int(3)}, nil)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "bar-3", created.Slug)
}

func TestDeleteEntry_Recounts(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "abyss")

	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(1)}
	require.NoError(t, svc.CreateEntry(ctx, entry))
	video := &models.Video{Path: "/lib/abyss/e01.mkv", Rendering: "r1", Version: 1, Guess: models.Guess{Title: "abyss"}}
	insert(t, db, video)
	insert(t, db, &models.EntryVideo{EntryID: entry.ID, VideoID: video.ID, Slug: entry.Slug})
	_, err := db.NewRaw("UPDATE shows SET available_count = 1 WHERE id = ?", show.ID).Exec(ctx)
	require.NoError(t, err)

	joins, err := svc.LoadVideos(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, joins, 1)
	assert.Equal(t, video.Path, joins[0].Video.Path)

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))

	var count int
	err = db.NewRaw("SELECT available_count FROM shows WHERE id = ?", show.ID).Scan(ctx, &count)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, svc.DeleteEntry(ctx, entry.ID), errcodes.NotFound("Entry"))
}

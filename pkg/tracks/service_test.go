package tracks

import (
	"context"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newEntry(t *testing.T, db bun.IDB) *models.Entry {
	t.Helper()
	ctx := context.Background()
	show := &models.Show{Kind: models.ShowKindSerie, Slug: "abyss", Name: "abyss", SortName: "abyss", Status: models.ShowStatusUnknown}
	_, err := db.NewInsert().Model(show).Returning("*").Exec(ctx)
	require.NoError(t, err)
	entry := &models.Entry{Kind: models.EntryKindEpisode, ShowID: &show.ID, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(1), Slug: "abyss-s1e1"}
	_, err = db.NewInsert().Model(entry).Returning("*").Exec(ctx)
	require.NoError(t, err)
	return entry
}

func TestCreateTrack_Indexes(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	entry := newEntry(t, db)

	tests := []struct {
		track *models.Track
		slug  string
	}{
		{&models.Track{Type: models.TrackTypeAudio, Codec: "aac", Language: pointerutil.String("jpn")}, "abyss-s1e1.jpn.audio"},
		{&models.Track{Type: models.TrackTypeAudio, Codec: "flac", Language: pointerutil.String("jpn")}, "abyss-s1e1.jpn-1.audio"},
		{&models.Track{Type: models.TrackTypeSubtitle, Codec: "ass", Language: pointerutil.String("ENG")}, "abyss-s1e1.eng.subtitle"},
		{&models.Track{Type: models.TrackTypeSubtitle, Codec: "ass", Language: pointerutil.String("eng"), IsForced: true}, "abyss-s1e1.eng.forced.subtitle"},
		{&models.Track{Type: models.TrackTypeVideo, Codec: "hevc"}, "abyss-s1e1.und.video"},
	}
	for _, tt := range tests {
		tt.track.EntryID = entry.ID
		require.NoError(t, svc.CreateTrack(ctx, tt.track))
		assert.Equal(t, tt.slug, tt.track.Slug)
	}

	list, err := svc.ListForEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestUpdateTrack(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	entry := newEntry(t, db)

	a := &models.Track{EntryID: entry.ID, Type: models.TrackTypeAudio, Codec: "aac", Language: pointerutil.String("jpn")}
	require.NoError(t, svc.CreateTrack(ctx, a))
	b := &models.Track{EntryID: entry.ID, Type: models.TrackTypeAudio, Codec: "aac", Language: pointerutil.String("eng")}
	require.NoError(t, svc.CreateTrack(ctx, b))

	// Joining the group of a takes the next index.
	b.Language = pointerutil.String("jpn")
	require.NoError(t, svc.UpdateTrack(ctx, b, UpdateTrackOptions{Columns: []string{"language"}}))
	assert.Equal(t, 1, b.TrackIndex)
	assert.Equal(t, "abyss-s1e1.jpn-1.audio", b.Slug)

	// Other fields leave the slug alone.
	b.Title = pointerutil.String("Commentary")
	require.NoError(t, svc.UpdateTrack(ctx, b, UpdateTrackOptions{Columns: []string{"title"}}))
	assert.Equal(t, "abyss-s1e1.jpn-1.audio", b.Slug)

	// An explicit index is kept, and taking a sibling's index is a conflict.
	b.TrackIndex = 0
	err := svc.UpdateTrack(ctx, b, UpdateTrackOptions{Columns: []string{"track_index"}})
	assert.Error(t, err)

	got, err := svc.RetrieveTrack(ctx, RetrieveTrackOptions{ID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, "abyss-s1e1.jpn-1.audio", got.Slug)
}

func TestUpsertExternalTrack(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	entry := newEntry(t, db)

	cand := &identifier.TrackCandidate{Path: "/lib/abyss/e01.en.srt", Language: "en", Codec: "subrip"}
	first, err := svc.UpsertExternalTrack(ctx, entry.ID, cand)
	require.NoError(t, err)
	assert.Equal(t, "abyss-s1e1.en.subtitle", first.Slug)
	assert.True(t, first.IsExternal)

	cand.IsForced = true
	second, err := svc.UpsertExternalTrack(ctx, entry.ID, cand)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "abyss-s1e1.en.forced.subtitle", second.Slug)

	list, err := svc.ListForEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

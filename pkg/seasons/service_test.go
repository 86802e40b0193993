package seasons

import (
	"context"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newShow(t *testing.T, db bun.IDB, slug string) *models.Show {
	t.Helper()
	show := &models.Show{Kind: models.ShowKindSerie, Slug: slug, Name: slug, SortName: slug, Status: models.ShowStatusUnknown}
	_, err := db.NewInsert().Model(show).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return show
}

func TestCreateSeason(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "bocchi")

	season := &models.Season{ShowID: show.ID, SeasonNumber: 1, ExternalID: map[string]models.ExternalID{"tmdb": {DataID: "1"}}}
	require.NoError(t, svc.CreateSeason(ctx, season))
	assert.Equal(t, "bocchi-s1", season.Slug)

	err := svc.CreateSeason(ctx, &models.Season{ShowID: show.ID, SeasonNumber: 1})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "conflict", codeErr.Code)

	err = svc.CreateSeason(ctx, &models.Season{ShowID: 999, SeasonNumber: 1})
	assert.ErrorIs(t, err, errcodes.NotFound("Show"))

	got, err := svc.RetrieveSeason(ctx, RetrieveSeasonOptions{Slug: pointerutil.String("bocchi-s1")})
	require.NoError(t, err)
	assert.Equal(t, "1", got.ExternalID["tmdb"].DataID)
	assert.Equal(t, "bocchi", got.Show.Slug)
}

func TestUpdateSeason_Number(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "bocchi")

	season := &models.Season{ShowID: show.ID, SeasonNumber: 1}
	require.NoError(t, svc.CreateSeason(ctx, season))
	other := &models.Season{ShowID: show.ID, SeasonNumber: 2}
	require.NoError(t, svc.CreateSeason(ctx, other))

	season.SeasonNumber = 3
	require.NoError(t, svc.UpdateSeason(ctx, season, UpdateSeasonOptions{Columns: []string{"season_number"}}))
	got, err := svc.RetrieveSeason(ctx, RetrieveSeasonOptions{ID: &season.ID})
	require.NoError(t, err)
	assert.Equal(t, "bocchi-s3", got.Slug)

	_, err = svc.RetrieveSeason(ctx, RetrieveSeasonOptions{Slug: pointerutil.String("bocchi-s1")})
	assert.ErrorIs(t, err, errcodes.NotFound("Season"))

	season.SeasonNumber = 2
	err = svc.UpdateSeason(ctx, season, UpdateSeasonOptions{Columns: []string{"season_number"}})
	var codeErr *errcodes.Error
	require.ErrorAs(t, err, &codeErr)
	assert.Equal(t, "conflict", codeErr.Code)
}

func TestFindOrCreateSeason(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "bocchi")

	calls := 0
	resolve := func(_ context.Context, seed *models.Season, _ []string) *models.Season {
		calls++
		out := *seed
		out.Name = pointerutil.String("Season One")
		out.SeasonNumber = 42
		return &out
	}

	created, isNew, err := svc.FindOrCreateSeason(ctx, &models.Season{ShowID: show.ID, SeasonNumber: 1}, resolve)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, 1, created.SeasonNumber)
	assert.Equal(t, "Season One", *created.Name)

	found, isNew, err := svc.FindOrCreateSeason(ctx, &models.Season{ShowID: show.ID, SeasonNumber: 1}, resolve)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 1, calls)

	list, err := svc.ListSeasons(ctx, ListSeasonsOptions{ShowID: &show.ID})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRefreshAndDeleteSeason(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)
	show := newShow(t, db, "bocchi")

	season := &models.Season{ShowID: show.ID, SeasonNumber: 1, Name: pointerutil.String("old")}
	require.NoError(t, svc.CreateSeason(ctx, season))

	refreshed, err := svc.RefreshSeason(ctx, season.ID, func(_ context.Context, seed *models.Season, force []string) *models.Season {
		assert.Equal(t, RefreshFields, force)
		out := *seed
		out.Name = pointerutil.String("new")
		return &out
	})
	require.NoError(t, err)
	assert.Equal(t, "new", *refreshed.Name)

	require.NoError(t, svc.DeleteSeason(ctx, season.ID))
	assert.ErrorIs(t, svc.DeleteSeason(ctx, season.ID), errcodes.NotFound("Season"))
}

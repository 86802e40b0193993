package externalids

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSave_IsAdditive(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()

	err := Save(ctx, db, models.ResourceShow, 1, map[string]models.ExternalID{
		"tmdb":  {DataID: "100", Link: pointerutil.String("https://themoviedb.org/tv/100")},
		"anidb": {DataID: "7"},
	})
	require.NoError(t, err)

	err = Save(ctx, db, models.ResourceShow, 1, map[string]models.ExternalID{
		"tmdb": {DataID: "101"},
	})
	require.NoError(t, err)

	ids, err := LoadOne(ctx, db, models.ResourceShow, 1)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "101", ids["tmdb"].DataID)
	assert.Nil(t, ids["tmdb"].Link)
	assert.Equal(t, "7", ids["anidb"].DataID)
}

func TestLoad_ScopedByResourceType(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()

	require.NoError(t, Save(ctx, db, models.ResourceShow, 1, map[string]models.ExternalID{"tmdb": {DataID: "1"}}))
	require.NoError(t, Save(ctx, db, models.ResourceEntry, 1, map[string]models.ExternalID{"tmdb": {DataID: "2"}}))
	require.NoError(t, Save(ctx, db, models.ResourceEntry, 2, map[string]models.ExternalID{"tmdb": {DataID: "3"}}))

	all, err := Load(ctx, db, models.ResourceEntry, []int{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2", all[1]["tmdb"].DataID)
	assert.Equal(t, "3", all[2]["tmdb"].DataID)

	empty, err := LoadOne(ctx, db, models.ResourceSeason, 1)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDelete(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()

	require.NoError(t, Save(ctx, db, models.ResourceShow, 1, map[string]models.ExternalID{"tmdb": {DataID: "1"}}))
	require.NoError(t, Save(ctx, db, models.ResourceShow, 2, map[string]models.ExternalID{"tmdb": {DataID: "2"}}))

	require.NoError(t, Delete(ctx, db, models.ResourceShow, []int{1}))

	all, err := Load(ctx, db, models.ResourceShow, []int{1, 2})
	require.NoError(t, err)
	assert.NotContains(t, all, 1)
	assert.Contains(t, all, 2)
}

func TestFindSubset(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()

	require.NoError(t, Save(ctx, db, models.ResourceEntry, 1, map[string]models.ExternalID{
		"tmdb":  {DataID: "10"},
		"anidb": {DataID: "20"},
	}))
	require.NoError(t, Save(ctx, db, models.ResourceEntry, 2, map[string]models.ExternalID{
		"tmdb": {DataID: "10"},
	}))

	ids, err := FindSubset(ctx, db, models.ResourceEntry, map[string]string{"tmdb": "10"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, ids)

	ids, err = FindSubset(ctx, db, models.ResourceEntry, map[string]string{"tmdb": "10", "anidb": "20"})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)

	ids, err = FindSubset(ctx, db, models.ResourceEntry, map[string]string{"tmdb": "10", "anidb": "21"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = FindSubset(ctx, db, models.ResourceEntry, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

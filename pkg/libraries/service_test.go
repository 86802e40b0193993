package libraries

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLibrary(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	library := &models.Library{
		Name:         "Anime",
		LibraryPaths: []*models.LibraryPath{{Filepath: "/media/anime"}, {Filepath: "/media/anime-old"}},
		Providers: []*models.LibraryProvider{
			{ProviderSlug: "anilist", Enabled: true},
			{ProviderSlug: "tmdb", Enabled: false},
			{ProviderSlug: "tvdb", Enabled: true},
		},
	}
	require.NoError(t, svc.CreateLibrary(ctx, library))
	assert.Equal(t, "anime", library.Slug)

	got, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{Slug: pointerutil.String("anime")})
	require.NoError(t, err)
	assert.Equal(t, []string{"/media/anime", "/media/anime-old"}, got.Roots())
	assert.Equal(t, []string{"anilist", "tvdb"}, got.ProviderOrder())

	second := &models.Library{Name: "Anime"}
	require.NoError(t, svc.CreateLibrary(ctx, second))
	assert.Equal(t, "anime-2", second.Slug)

	err = svc.CreateLibrary(ctx, &models.Library{Name: "Other", Slug: "anime"})
	assert.ErrorIs(t, err, errcodes.DuplicateSlug("Library", "anime"))
}

func TestRetrieveLibraryForPath(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	outer := &models.Library{Name: "Media", LibraryPaths: []*models.LibraryPath{{Filepath: "/media"}}}
	require.NoError(t, svc.CreateLibrary(ctx, outer))
	inner := &models.Library{Name: "Movies", LibraryPaths: []*models.LibraryPath{{Filepath: "/media/movies/"}}}
	require.NoError(t, svc.CreateLibrary(ctx, inner))

	got, err := svc.RetrieveLibraryForPath(ctx, "/media/movies/Akira (1988)/Akira.mkv")
	require.NoError(t, err)
	assert.Equal(t, inner.ID, got.ID)

	got, err = svc.RetrieveLibraryForPath(ctx, "/media/moviesextra/x.mkv")
	require.NoError(t, err)
	assert.Equal(t, outer.ID, got.ID)

	_, err = svc.RetrieveLibraryForPath(ctx, "/elsewhere/x.mkv")
	assert.ErrorIs(t, err, errcodes.NotFound("Library"))
}

func TestUpdateLibrary_Providers(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	library := &models.Library{Name: "Shows", Providers: []*models.LibraryProvider{{ProviderSlug: "tmdb", Enabled: true}}}
	require.NoError(t, svc.CreateLibrary(ctx, library))

	library.Providers = []*models.LibraryProvider{
		{ProviderSlug: "tvdb", Enabled: true},
		{ProviderSlug: "tmdb", Enabled: true},
	}
	require.NoError(t, svc.UpdateLibrary(ctx, library, UpdateLibraryOptions{UpdateProviders: true}))

	got, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"tvdb", "tmdb"}, got.ProviderOrder())

	library.Providers = []*models.LibraryProvider{{ProviderSlug: "tvdb"}, {ProviderSlug: "tvdb"}}
	err = svc.UpdateLibrary(ctx, library, UpdateLibraryOptions{UpdateProviders: true})
	assert.Error(t, err)

	require.NoError(t, svc.DeleteLibrary(ctx, library.ID))
	assert.ErrorIs(t, svc.DeleteLibrary(ctx, library.ID), errcodes.NotFound("Library"))
}

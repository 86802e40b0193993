package providers

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateProvider(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	first, err := svc.FindOrCreateProvider(ctx, "tmdb", "The Movie Database")
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.Equal(t, "The Movie Database", first.Name)

	second, err := svc.FindOrCreateProvider(ctx, "tmdb", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	other, err := svc.FindOrCreateProvider(ctx, "anidb", "")
	require.NoError(t, err)
	assert.Equal(t, "anidb", other.Name)

	list, err := svc.ListProviders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "anidb", list[0].Slug)
}

func TestRetrieveProvider_NotFound(t *testing.T) {
	db := testutils.NewDB(t)
	svc := NewService(db)

	_, err := svc.RetrieveProvider(testutils.Context(), RetrieveProviderOptions{Slug: pointerutil.String("nope")})
	assert.ErrorIs(t, err, errcodes.NotFound("Provider"))
}

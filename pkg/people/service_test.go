package people

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePerson_Slugs(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	first := &models.Person{Name: "Hayao Miyazaki"}
	require.NoError(t, svc.CreatePerson(ctx, first))
	assert.Equal(t, "hayao-miyazaki", first.Slug)

	second := &models.Person{Name: "Hayao Miyazaki"}
	require.NoError(t, svc.CreatePerson(ctx, second))
	assert.Equal(t, "hayao-miyazaki-2", second.Slug)

	err := svc.CreatePerson(ctx, &models.Person{Name: "Miyazaki", Slug: "hayao-miyazaki"})
	assert.ErrorIs(t, err, errcodes.DuplicateSlug("Person", "hayao-miyazaki"))
}

func TestFindOrCreatePerson_PrefersExternalID(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	original, err := svc.FindOrCreatePerson(ctx, "Mamoru Oshii", map[string]models.ExternalID{"tmdb": {DataID: "12"}})
	require.NoError(t, err)

	// A different spelling with the same provider id is the same person.
	same, err := svc.FindOrCreatePerson(ctx, "Oshii Mamoru", map[string]models.ExternalID{"tmdb": {DataID: "12"}})
	require.NoError(t, err)
	assert.Equal(t, original.ID, same.ID)

	byName, err := svc.FindOrCreatePerson(ctx, "mamoru oshii", nil)
	require.NoError(t, err)
	assert.Equal(t, original.ID, byName.ID)

	other, err := svc.FindOrCreatePerson(ctx, "Satoshi Kon", nil)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, other.ID)
}

func TestSetShowCast(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	svc := NewService(db)

	show := &models.Show{Kind: models.ShowKindMovie, Slug: "perfect-blue", Name: "Perfect Blue", SortName: "Perfect Blue", Status: models.ShowStatusFinished}
	_, err := db.NewInsert().Model(show).Exec(ctx)
	require.NoError(t, err)

	err = svc.SetShowCast(ctx, show.ID, []*models.ShowPerson{
		{Type: models.PersonTypeDirector, Person: &models.Person{Name: "Satoshi Kon"}},
		{Type: models.PersonTypeActor, Role: pointerutil.String("Mima"), Person: &models.Person{Name: "Junko Iwao"}},
		{Type: models.PersonTypeDirector, Person: &models.Person{Name: "Satoshi Kon"}},
	})
	require.NoError(t, err)

	cast, err := svc.ListShowCast(ctx, show.ID)
	require.NoError(t, err)
	require.Len(t, cast, 2)
	assert.Equal(t, "satoshi-kon", cast[0].Person.Slug)
	assert.Equal(t, "Mima", *cast[1].Role)

	shows, err := svc.ListPersonShows(ctx, cast[0].PersonID)
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, show.ID, shows[0].ID)

	// Replacing the cast drops credits that are gone.
	err = svc.SetShowCast(ctx, show.ID, []*models.ShowPerson{
		{Type: models.PersonTypeDirector, Person: &models.Person{Name: "Satoshi Kon"}},
	})
	require.NoError(t, err)
	cast, err = svc.ListShowCast(ctx, show.ID)
	require.NoError(t, err)
	assert.Len(t, cast, 1)
}

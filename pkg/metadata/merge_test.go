package metadata

import (
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestFold_Cast(t *testing.T) {
	seed := &models.Show{Cast: []*models.ShowPerson{
		{Type: models.PersonTypeActor, Person: &models.Person{Name: "Jane Doe"}},
	}}
	found := []*models.Show{
		nil,
		{Cast: []*models.ShowPerson{
			{Type: models.PersonTypeActor, Person: &models.Person{Name: "Jane  Doe"}},
			{Type: models.PersonTypeDirector, Person: &models.Person{Name: "Jane Doe"}},
			{Type: models.PersonTypeActor, Person: nil},
		}},
	}

	got := fold(seed, found, nil, showFields, cloneShow)

	assert.Len(t, got.Cast, 2)
	assert.Equal(t, models.PersonTypeDirector, got.Cast[1].Type)
}

func TestFold_StatusUnknownIsEmpty(t *testing.T) {
	seed := &models.Show{Status: models.ShowStatusUnknown}
	found := []*models.Show{{Status: models.ShowStatusFinished}}

	got := fold(seed, found, nil, showFields, cloneShow)
	assert.Equal(t, models.ShowStatusFinished, got.Status)
}

func TestFold_NumberingIsNeverMerged(t *testing.T) {
	seed := &models.Entry{Kind: models.EntryKindEpisode, SeasonNumber: pointerutil.Int(1), EpisodeNumber: pointerutil.Int(2)}
	found := []*models.Entry{{
		Slug:          "other",
		SeasonNumber:  pointerutil.Int(5),
		EpisodeNumber: pointerutil.Int(6),
		Name:          pointerutil.String("Pilot"),
		Runtime:       pointerutil.Int(42),
	}}

	got := fold(seed, found, []string{"name"}, entryFields, cloneEntry)

	assert.Equal(t, 1, *got.SeasonNumber)
	assert.Equal(t, 2, *got.EpisodeNumber)
	assert.Empty(t, got.Slug)
	assert.Equal(t, "Pilot", *got.Name)
	assert.Equal(t, 42, *got.Runtime)
}

func TestFold_BlankTextIsEmpty(t *testing.T) {
	seed := &models.Season{Name: pointerutil.String("  ")}
	found := []*models.Season{{Name: pointerutil.String("Season One")}}

	got := fold(seed, found, nil, seasonFields, cloneSeason)
	assert.Equal(t, "Season One", *got.Name)
}

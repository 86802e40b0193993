package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ShowKindMovie = "movie"
	ShowKindSerie = "serie"
)

const (
	ShowStatusUnknown  = "unknown"
	ShowStatusFinished = "finished"
	ShowStatusAiring   = "airing"
	ShowStatusPlanned  = "planned"
)

type Show struct {
	bun.BaseModel `bun:"table:shows,alias:sh"`

	ID             int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	LibraryID      *int                  `json:"library_id,omitempty"`
	Kind           string                `bun:",nullzero" json:"kind"`
	Slug           string                `bun:",nullzero" json:"slug"`
	Name           string                `bun:",nullzero" json:"name"`
	SortName       string                `bun:",nullzero" json:"sort_name"`
	Aliases        []string              `json:"aliases"`
	Overview       *string               `json:"overview,omitempty"`
	Genres         []string              `json:"genres"`
	Status         string                `bun:",nullzero" json:"status"`
	StartAir       *time.Time            `json:"start_air,omitempty"`
	EndAir         *time.Time            `json:"end_air,omitempty"`
	StudioID       *int                  `json:"studio_id,omitempty"`
	Studio         *Studio               `bun:"rel:belongs-to" json:"studio,omitempty"`
	CollectionID   *int                  `json:"collection_id,omitempty"`
	Collection     *Collection           `bun:"rel:belongs-to" json:"collection,omitempty"`
	AvailableCount int                   `json:"available_count"`
	Seasons        []*Season             `bun:"rel:has-many" json:"seasons,omitempty"`
	Entries        []*Entry              `bun:"rel:has-many" json:"entries,omitempty"`
	Cast           []*ShowPerson         `bun:"rel:has-many" json:"cast,omitempty"`
	ExternalID     map[string]ExternalID `bun:"-" json:"external_id"`
}

// StartYear returns the year of the first air date, if known.
func (s *Show) StartYear() *int {
	if s.StartAir == nil {
		return nil
	}
	y := s.StartAir.Year()
	return &y
}

func (s *Show) IsMovie() bool {
	return s.Kind == ShowKindMovie
}

// YearDate returns January 1st of the given year in UTC.
func YearDate(year int) *time.Time {
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

package entries

import (
	"time"

	"github.com/shishobooks/kino/pkg/models"
)

type ListEntriesQuery struct {
	Limit        int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset       int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	ShowID       *int    `query:"show_id" json:"show_id,omitempty" validate:"omitempty,min=1"`
	SeasonNumber *int    `query:"season_number" json:"season_number,omitempty" validate:"omitempty,min=0"`
	Kind         *string `query:"kind" json:"kind,omitempty" validate:"omitempty,oneof=episode movie special extra unknown"`
	Available    *bool   `query:"available" json:"available,omitempty"`
}

type CreateEntryPayload struct {
	Kind           string                       `json:"kind" validate:"required,oneof=episode special extra unknown"`
	ShowID         *int                         `json:"show_id,omitempty" validate:"omitempty,min=1"`
	Slug           string                       `json:"slug,omitempty" validate:"omitempty,slug"`
	Name           *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Overview       *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	SeasonNumber   *int                         `json:"season_number,omitempty" validate:"omitempty,min=0"`
	EpisodeNumber  *int                         `json:"episode_number,omitempty" validate:"omitempty,min=0"`
	AbsoluteNumber *int                         `json:"absolute_number,omitempty" validate:"omitempty,min=0"`
	Order          *float64                     `json:"order,omitempty"`
	ExtraKind      *string                      `json:"extra_kind,omitempty" validate:"omitempty,max=50"`
	AirDate        *time.Time                   `json:"air_date,omitempty"`
	Runtime        *int                         `json:"runtime,omitempty" validate:"omitempty,min=0"`
	ExternalID     map[string]models.ExternalID `json:"external_id,omitempty"`
}

// UpdateEntryPayload changes an entry. Numbering fields are replaced as a group when
// Numbering is set, so that switching between season/episode and absolute numbering
// can clear the other form.
type UpdateEntryPayload struct {
	Kind       *string                      `json:"kind,omitempty" validate:"omitempty,oneof=episode special extra unknown"`
	ShowID     *int                         `json:"show_id,omitempty" validate:"omitempty,min=1"`
	Name       *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Overview   *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	Numbering  *NumberingPayload            `json:"numbering,omitempty"`
	ExtraKind  *string                      `json:"extra_kind,omitempty" validate:"omitempty,max=50"`
	AirDate    *time.Time                   `json:"air_date,omitempty"`
	Runtime    *int                         `json:"runtime,omitempty" validate:"omitempty,min=0"`
	ExternalID map[string]models.ExternalID `json:"external_id,omitempty"`
}

type NumberingPayload struct {
	SeasonNumber   *int     `json:"season_number,omitempty" validate:"omitempty,min=0"`
	EpisodeNumber  *int     `json:"episode_number,omitempty" validate:"omitempty,min=0"`
	AbsoluteNumber *int     `json:"absolute_number,omitempty" validate:"omitempty,min=0"`
	Order          *float64 `json:"order,omitempty"`
}

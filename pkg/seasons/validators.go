package seasons

import (
	"time"

	"github.com/shishobooks/kino/pkg/models"
)

type ListSeasonsQuery struct {
	Limit  int  `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset int  `query:"offset" json:"offset,omitempty" validate:"min=0"`
	ShowID *int `query:"show_id" json:"show_id,omitempty" validate:"omitempty,min=1"`
}

type CreateSeasonPayload struct {
	ShowID       int                          `json:"show_id" validate:"required,min=1"`
	SeasonNumber int                          `json:"season_number" validate:"min=0"`
	Name         *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Overview     *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	StartAir     *time.Time                   `json:"start_air,omitempty"`
	EndAir       *time.Time                   `json:"end_air,omitempty"`
	ExternalID   map[string]models.ExternalID `json:"external_id,omitempty"`
}

type UpdateSeasonPayload struct {
	SeasonNumber *int                         `json:"season_number,omitempty" validate:"omitempty,min=0"`
	Name         *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Overview     *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	StartAir     *time.Time                   `json:"start_air,omitempty"`
	EndAir       *time.Time                   `json:"end_air,omitempty"`
	ExternalID   map[string]models.ExternalID `json:"external_id,omitempty"`
}

package shows

import (
	"time"

	"github.com/shishobooks/kino/pkg/models"
)

type ListShowsQuery struct {
	Limit        int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset       int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	LibraryID    *int    `query:"library_id" json:"library_id,omitempty" validate:"omitempty,min=1"`
	Kind         *string `query:"kind" json:"kind,omitempty" validate:"omitempty,oneof=movie serie"`
	CollectionID *int    `query:"collection_id" json:"collection_id,omitempty" validate:"omitempty,min=1"`
	StudioID     *int    `query:"studio_id" json:"studio_id,omitempty" validate:"omitempty,min=1"`
	Search       *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreateShowPayload struct {
	Kind       string                       `json:"kind" validate:"required,oneof=movie serie"`
	Name       string                       `json:"name" validate:"required,max=300"`
	Slug       string                       `json:"slug,omitempty" validate:"omitempty,slug"`
	LibraryID  *int                         `json:"library_id,omitempty" validate:"omitempty,min=1"`
	SortName   string                       `json:"sort_name,omitempty" validate:"max=300"`
	Aliases    []string                     `json:"aliases,omitempty" validate:"max=50,dive,max=300"`
	Overview   *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	Genres     []string                     `json:"genres,omitempty" validate:"max=50,dive,max=100"`
	Status     string                       `json:"status,omitempty" validate:"omitempty,oneof=unknown finished airing planned"`
	StartAir   *time.Time                   `json:"start_air,omitempty"`
	EndAir     *time.Time                   `json:"end_air,omitempty"`
	Studio     *string                      `json:"studio,omitempty" validate:"omitempty,max=300"`
	Collection *string                      `json:"collection,omitempty" validate:"omitempty,max=300"`
	ExternalID map[string]models.ExternalID `json:"external_id,omitempty"`
}

type UpdateShowPayload struct {
	Name       *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Slug       *string                      `json:"slug,omitempty" validate:"omitempty,slug"`
	SortName   *string                      `json:"sort_name,omitempty" validate:"omitempty,max=300"`
	Aliases    []string                     `json:"aliases,omitempty" validate:"max=50,dive,max=300"`
	Overview   *string                      `json:"overview,omitempty" validate:"omitempty,max=10000"`
	Genres     []string                     `json:"genres,omitempty" validate:"max=50,dive,max=100"`
	Status     *string                      `json:"status,omitempty" validate:"omitempty,oneof=unknown finished airing planned"`
	StartAir   *time.Time                   `json:"start_air,omitempty"`
	EndAir     *time.Time                   `json:"end_air,omitempty"`
	Studio     *string                      `json:"studio,omitempty" validate:"omitempty,max=300"`
	Collection *string                      `json:"collection,omitempty" validate:"omitempty,max=300"`
	ExternalID map[string]models.ExternalID `json:"external_id,omitempty"`
}

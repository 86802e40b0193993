package people

import "github.com/shishobooks/kino/pkg/models"

type ListPeopleQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"25" validate:"min=1,max=100"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"search" json:"search,omitempty" validate:"omitempty,max=100"`
}

type CreatePersonPayload struct {
	Name       string                       `json:"name" validate:"required,max=300"`
	Slug       string                       `json:"slug,omitempty" validate:"omitempty,slug"`
	ExternalID map[string]models.ExternalID `json:"external_id,omitempty"`
}

type UpdatePersonPayload struct {
	Name       *string                      `json:"name,omitempty" validate:"omitempty,max=300"`
	Slug       *string                      `json:"slug,omitempty" validate:"omitempty,slug"`
	ExternalID map[string]models.ExternalID `json:"external_id,omitempty"`
}

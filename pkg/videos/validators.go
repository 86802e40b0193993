package videos

import "github.com/shishobooks/kino/pkg/models"

type SeedVideoPayload struct {
	Path      string       `json:"path" validate:"required,max=4096"`
	Rendering string       `json:"rendering,omitempty" validate:"omitempty,max=128"`
	Part      *int         `json:"part,omitempty" validate:"omitempty,min=0"`
	Version   int          `json:"version,omitempty" validate:"omitempty,min=1"`
	Guess     models.Guess `json:"guess"`
	For       []Hint       `json:"for,omitempty"`
}

// RegisterPayload is a JSON array of videos.
type RegisterPayload struct {
	Videos []SeedVideoPayload `validate:"dive"`
}

func (p *RegisterPayload) BodyTarget() interface{} {
	return &p.Videos
}

// DeletePayload is a JSON array of paths.
type DeletePayload struct {
	Paths []string `validate:"dive,required"`
}

func (p *DeletePayload) BodyTarget() interface{} {
	return &p.Paths
}

type LinkVideoPayload struct {
	ID  int    `json:"id" validate:"required,min=1"`
	For []Hint `json:"for" validate:"required,min=1"`
}

// LinkPayload is a JSON array of links.
type LinkPayload struct {
	Links []LinkVideoPayload `validate:"dive"`
}

func (p *LinkPayload) BodyTarget() interface{} {
	return &p.Links
}

type ListUnmatchedQuery struct {
	Limit  int     `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=250"`
	Offset int     `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search *string `query:"q" json:"q,omitempty" validate:"omitempty,max=200"`
}

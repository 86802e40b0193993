package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Collection struct {
	bun.BaseModel `bun:"table:collections,alias:c"`

	ID         int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Slug       string                `bun:",nullzero" json:"slug"`
	Name       string                `bun:",nullzero" json:"name"`
	Overview   *string               `json:"overview,omitempty"`
	Shows      []*Show               `bun:"rel:has-many" json:"shows,omitempty"`
	ExternalID map[string]ExternalID `bun:"-" json:"external_id"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Season struct {
	bun.BaseModel `bun:"table:seasons,alias:se"`

	ID             int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	ShowID         int                   `bun:",nullzero" json:"show_id"`
	Show           *Show                 `bun:"rel:belongs-to" json:"show,omitempty"`
	SeasonNumber   int                   `json:"season_number"`
	Slug           string                `bun:",nullzero" json:"slug"`
	Name           *string               `json:"name,omitempty"`
	Overview       *string               `json:"overview,omitempty"`
	StartAir       *time.Time            `json:"start_air,omitempty"`
	EndAir         *time.Time            `json:"end_air,omitempty"`
	AvailableCount int                   `json:"available_count"`
	ExternalID     map[string]ExternalID `bun:"-" json:"external_id"`
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Studio struct {
	bun.BaseModel `bun:"table:studios,alias:st"`

	ID         int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Slug       string                `bun:",nullzero" json:"slug"`
	Name       string                `bun:",nullzero" json:"name"`
	ExternalID map[string]ExternalID `bun:"-" json:"external_id"`
}

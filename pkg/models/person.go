package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	PersonTypeActor    = "actor"
	PersonTypeDirector = "director"
	PersonTypeWriter   = "writer"
	PersonTypeProducer = "producer"
	PersonTypeMusic    = "music"
	PersonTypeOther    = "other"
)

type Person struct {
	bun.BaseModel `bun:"table:people,alias:p"`

	ID         int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time             `json:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Slug       string                `bun:",nullzero" json:"slug"`
	Name       string                `bun:",nullzero" json:"name"`
	ExternalID map[string]ExternalID `bun:"-" json:"external_id"`
}

// ShowPerson is one cast or crew credit of a show.
type ShowPerson struct {
	bun.BaseModel `bun:"table:show_people,alias:sp"`

	ID       int     `bun:",pk,nullzero" json:"id"`
	ShowID   int     `bun:",nullzero" json:"show_id"`
	PersonID int     `bun:",nullzero" json:"person_id"`
	Person   *Person `bun:"rel:belongs-to" json:"person,omitempty"`
	Type     string  `bun:",nullzero" json:"type"`
	Role     *string `json:"role,omitempty"`
}

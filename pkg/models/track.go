package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TrackTypeVideo    = "video"
	TrackTypeAudio    = "audio"
	TrackTypeSubtitle = "subtitle"
)

type Track struct {
	bun.BaseModel `bun:"table:tracks,alias:t"`

	ID         int       `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EntryID    int       `bun:",nullzero" json:"entry_id"`
	Entry      *Entry    `bun:"rel:belongs-to" json:"entry,omitempty"`
	Type       string    `bun:",nullzero" json:"type"`
	Language   *string   `json:"language,omitempty"`
	Codec      string    `bun:",nullzero" json:"codec"`
	Title      *string   `json:"title,omitempty"`
	IsDefault  bool      `json:"is_default"`
	IsForced   bool      `json:"is_forced"`
	IsExternal bool      `json:"is_external"`
	Path       *string   `json:"path,omitempty"`
	TrackIndex int       `json:"track_index"`
	Slug       string    `bun:",nullzero" json:"slug"`
}

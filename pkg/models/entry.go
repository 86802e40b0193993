package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	EntryKindEpisode = "episode"
	EntryKindMovie   = "movie"
	EntryKindSpecial = "special"
	EntryKindExtra   = "extra"
	EntryKindUnknown = "unknown"
)

type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID             int                   `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
	Kind           string                `bun:",nullzero" json:"kind"`
	ShowID         *int                  `json:"show_id,omitempty"`
	Show           *Show                 `bun:"rel:belongs-to" json:"show,omitempty"`
	Slug           string                `bun:",nullzero" json:"slug"`
	Name           *string               `json:"name,omitempty"`
	Overview       *string               `json:"overview,omitempty"`
	SeasonNumber   *int                  `json:"season_number,omitempty"`
	EpisodeNumber  *int                  `json:"episode_number,omitempty"`
	AbsoluteNumber *int                  `json:"absolute_number,omitempty"`
	Order          *float64              `bun:"episode_order" json:"order,omitempty"`
	ExtraKind      *string               `json:"extra_kind,omitempty"`
	AirDate        *time.Time            `json:"air_date,omitempty"`
	Runtime        *int                  `json:"runtime,omitempty"`
	AvailableSince *time.Time            `json:"available_since,omitempty"`
	Videos         []*EntryVideo         `bun:"rel:has-many" json:"videos,omitempty"`
	Tracks         []*Track              `bun:"rel:has-many" json:"tracks,omitempty"`
	ExternalID     map[string]ExternalID `bun:"-" json:"external_id"`
}

// NumberingIsValid reports whether the numbering fields fit the entry kind.
// Episodes use season+episode or absolute, never both. Specials use an
// episode number without a season and may carry an order. Other kinds carry
// no numbers.
func (e *Entry) NumberingIsValid() bool {
	switch e.Kind {
	case EntryKindEpisode:
		partial := (e.SeasonNumber == nil) != (e.EpisodeNumber == nil)
		seasonEpisode := e.SeasonNumber != nil && e.EpisodeNumber != nil
		return !partial && seasonEpisode != (e.AbsoluteNumber != nil) && e.Order == nil
	case EntryKindSpecial:
		return e.EpisodeNumber != nil && e.SeasonNumber == nil && e.AbsoluteNumber == nil
	case EntryKindMovie, EntryKindExtra, EntryKindUnknown:
		return e.SeasonNumber == nil && e.EpisodeNumber == nil && e.AbsoluteNumber == nil
	}
	return false
}

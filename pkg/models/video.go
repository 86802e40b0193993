package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	GuessKindEpisode = "episode"
	GuessKindMovie   = "movie"
	GuessKindExtra   = "extra"
)

type Video struct {
	bun.BaseModel `bun:"table:videos,alias:v"`

	ID        int           `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Path      string        `bun:",nullzero" json:"path"`
	Rendering string        `bun:",nullzero" json:"rendering"`
	Part      *int          `json:"part,omitempty"`
	Version   int           `bun:",notnull,default:1" json:"version"`
	Guess     Guess         `json:"guess"`
	Entries   []*EntryVideo `bun:"rel:has-many" json:"entries,omitempty"`
}

// Guess is the best-effort identification of a video, produced upstream from
// its filename. It may be wrong and is never trusted over catalog data.
type Guess struct {
	Title      string            `json:"title"`
	Kind       string            `json:"kind,omitempty"`
	ExtraKind  *string           `json:"extra_kind,omitempty"`
	Years      []int             `json:"years,omitempty"`
	Episodes   []GuessEpisode    `json:"episodes,omitempty"`
	ExternalID map[string]string `json:"external_id,omitempty"`
	From       string            `json:"from,omitempty"`
	History    []Guess           `json:"history,omitempty"`
}

// GuessEpisode is a season/episode pair. A nil season means the episode
// number is absolute.
type GuessEpisode struct {
	Season  *int `json:"season,omitempty"`
	Episode int  `json:"episode"`
}

// EntryVideo links one video to one entry. The pair is unique.
type EntryVideo struct {
	bun.BaseModel `bun:"table:entry_videos,alias:ev"`

	EntryID   int       `bun:",pk" json:"entry_id"`
	VideoID   int       `bun:",pk" json:"video_id"`
	CreatedAt time.Time `json:"created_at"`
	Slug      string    `bun:",nullzero" json:"slug"`
	Entry     *Entry    `bun:"rel:belongs-to,join:entry_id=id" json:"entry,omitempty"`
	Video     *Video    `bun:"rel:belongs-to,join:video_id=id" json:"video,omitempty"`
}

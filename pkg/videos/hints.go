package videos

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/uptrace/bun"
)

// Hint names the entry a video belongs to. Movie and Serie hold the id or the slug of
// a show.
type Hint struct {
	Slug       *string           `json:"slug,omitempty"`
	Movie      *string           `json:"movie,omitempty"`
	Serie      *string           `json:"serie,omitempty"`
	Season     *int              `json:"season,omitempty"`
	Episode    *int              `json:"episode,omitempty"`
	Absolute   *int              `json:"absolute,omitempty"`
	Order      *float64          `json:"order,omitempty"`
	Special    *int              `json:"special,omitempty"`
	ExternalID map[string]string `json:"external_id,omitempty"`
}

type strategy struct {
	name    string
	applies func(h Hint) bool
	query   func(q *bun.SelectQuery, h Hint) *bun.SelectQuery
}

// strategies are tried in order and the first one that finds entries wins. The
// external id strategy is handled apart since it goes through the metadata ids.
var strategies = []strategy{
	{
		name:    "slug",
		applies: func(h Hint) bool { return h.Slug != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return q.Where("e.slug = ?", *h.Slug)
		},
	},
	{
		name:    "movie",
		applies: func(h Hint) bool { return h.Movie != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return whereShow(q, *h.Movie).Where("e.kind = ?", models.EntryKindMovie)
		},
	},
	{
		name:    "episode",
		applies: func(h Hint) bool { return h.Serie != nil && h.Season != nil && h.Episode != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return whereShow(q, *h.Serie).
				Where("e.kind = ?", models.EntryKindEpisode).
				Where("e.season_number = ?", *h.Season).
				Where("e.episode_number = ?", *h.Episode)
		},
	},
	{
		name:    "absolute",
		applies: func(h Hint) bool { return h.Serie != nil && h.Absolute != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return whereShow(q, *h.Serie).
				Where("e.kind = ?", models.EntryKindEpisode).
				Where("e.absolute_number = ?", *h.Absolute)
		},
	},
	{
		name:    "order",
		applies: func(h Hint) bool { return h.Serie != nil && h.Order != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return whereShow(q, *h.Serie).Where("e.episode_order = ?", *h.Order)
		},
	},
	{
		name:    "special",
		applies: func(h Hint) bool { return h.Serie != nil && h.Special != nil },
		query: func(q *bun.SelectQuery, h Hint) *bun.SelectQuery {
			return whereShow(q, *h.Serie).
				Where("e.kind = ?", models.EntryKindSpecial).
				Where("e.episode_number = ?", *h.Special)
		},
	},
}

// whereShow restricts q to the entries of the show with the given id or slug. Numeric
// slugs are reserved, so a number is always an id.
func whereShow(q *bun.SelectQuery, ref string) *bun.SelectQuery {
	q = q.Join("JOIN shows AS s ON s.id = e.show_id")
	if id, err := strconv.Atoi(ref); err == nil {
		return q.Where("s.id = ?", id)
	}
	return q.Where("s.slug = ?", ref)
}

// resolveHint returns the entries a hint points to, and the name of the strategy that
// found them. No entries and an empty name means the hint did not resolve.
func resolveHint(ctx context.Context, db bun.IDB, hint Hint) ([]*models.Entry, string, error) {
	for _, s := range strategies {
		if !s.applies(hint) {
			continue
		}
		entries := []*models.Entry{}
		q := db.NewSelect().Model(&entries).Order("e.id ASC")
		err := s.query(q, hint).Scan(ctx)
		if err != nil {
			return nil, "", errors.WithStack(err)
		}
		if len(entries) > 0 {
			return entries, s.name, nil
		}
	}

	if len(hint.ExternalID) == 0 {
		return nil, "", nil
	}
	ids, err := externalids.FindSubset(ctx, db, models.ResourceEntry, hint.ExternalID)
	if err != nil {
		return nil, "", err
	}
	if len(ids) == 0 {
		return nil, "", nil
	}
	entries := []*models.Entry{}
	err = db.NewSelect().Model(&entries).Where("e.id IN (?)", bun.In(ids)).Order("e.id ASC").Scan(ctx)
	if err != nil {
		return nil, "", errors.WithStack(err)
	}
	return entries, "external_id", nil
}

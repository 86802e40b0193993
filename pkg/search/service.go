// Package search maintains the full-text index of shows and answers the global
// search across shows, collections, studios and people.
package search

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/uptrace/bun"
)

const globalSearchLimit = 5

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// IndexShow adds or replaces the index row of a show.
func (svc *Service) IndexShow(ctx context.Context, show *models.Show) error {
	err := svc.DeleteFromShowIndex(ctx, show.ID)
	if err != nil {
		return err
	}

	_, err = svc.db.NewRaw(
		"INSERT INTO shows_fts (show_id, name, aliases) VALUES (?, ?, ?)",
		show.ID, show.Name, strings.Join(show.Aliases, " "),
	).Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) DeleteFromShowIndex(ctx context.Context, showID int) error {
	_, err := svc.db.NewDelete().
		TableExpr("shows_fts").
		Where("show_id = ?", showID).
		Exec(ctx)
	return errors.WithStack(err)
}

// RebuildShowIndex rebuilds the show index from scratch.
func (svc *Service) RebuildShowIndex(ctx context.Context) error {
	_, err := svc.db.NewRaw("DELETE FROM shows_fts").Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	_, err = svc.db.NewRaw(`
		INSERT INTO shows_fts (show_id, name, aliases)
		SELECT
			sh.id,
			sh.name,
			COALESCE((SELECT GROUP_CONCAT(value, ' ') FROM json_each(sh.aliases)), '')
		FROM shows sh
	`).Exec(ctx)
	return errors.WithStack(err)
}

// ShowIDs returns the ids of the shows whose name or aliases start with query, best
// match first. An empty query matches nothing.
func (svc *Service) ShowIDs(ctx context.Context, query string, limit, offset int) ([]int, error) {
	ftsQuery := BuildPrefixQuery(query)
	if ftsQuery == "" {
		return []int{}, nil
	}

	ids := []int{}
	q := svc.db.NewSelect().
		TableExpr("shows_fts").
		ColumnExpr("show_id").
		Where("shows_fts MATCH ?", ftsQuery).
		Order("rank")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

// GlobalSearch returns a few matches of each resource kind.
func (svc *Service) GlobalSearch(ctx context.Context, query string) (*GlobalSearchResponse, error) {
	resp := &GlobalSearchResponse{
		Shows:       []*models.Show{},
		Collections: []*models.Collection{},
		Studios:     []*models.Studio{},
		People:      []*models.Person{},
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return resp, nil
	}

	ids, err := svc.ShowIDs(ctx, query, globalSearchLimit, 0)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		shows := []*models.Show{}
		err = svc.db.NewSelect().Model(&shows).Where("sh.id IN (?)", bun.In(ids)).Scan(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		byID := make(map[int]*models.Show, len(shows))
		for _, s := range shows {
			byID[s.ID] = s
		}
		for _, id := range ids {
			if s, ok := byID[id]; ok {
				resp.Shows = append(resp.Shows, s)
			}
		}
	}

	like := "%" + query + "%"
	err = svc.db.NewSelect().Model(&resp.Collections).
		Where("LOWER(c.name) LIKE LOWER(?)", like).
		Order("c.name ASC").
		Limit(globalSearchLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	err = svc.db.NewSelect().Model(&resp.Studios).
		Where("LOWER(st.name) LIKE LOWER(?)", like).
		Order("st.name ASC").
		Limit(globalSearchLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	err = svc.db.NewSelect().Model(&resp.People).
		Where("LOWER(p.name) LIKE LOWER(?)", like).
		Order("p.name ASC").
		Limit(globalSearchLimit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return resp, nil
}

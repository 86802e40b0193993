package metadata

import (
	"context"

	"github.com/shishobooks/kino/pkg/models"
)

// ShowResolver returns a function resolving shows with the given provider order.
func (e *Engine) ShowResolver(providers []string) func(ctx context.Context, seed *models.Show, force []string) *models.Show {
	return func(ctx context.Context, seed *models.Show, force []string) *models.Show {
		show, _ := e.ResolveShow(ctx, seed, ResolveOptions{Providers: providers, ForceRefresh: force})
		return show
	}
}

// SeasonResolver returns a function resolving seasons with the given provider order.
func (e *Engine) SeasonResolver(providers []string) func(ctx context.Context, seed *models.Season, force []string) *models.Season {
	return func(ctx context.Context, seed *models.Season, force []string) *models.Season {
		season, _ := e.ResolveSeason(ctx, seed, ResolveOptions{Providers: providers, ForceRefresh: force})
		return season
	}
}

// EntryResolver returns a function resolving entries with the given provider order.
func (e *Engine) EntryResolver(providers []string) func(ctx context.Context, seed *models.Entry, force []string) *models.Entry {
	return func(ctx context.Context, seed *models.Entry, force []string) *models.Entry {
		entry, _ := e.ResolveEntry(ctx, seed, ResolveOptions{Providers: providers, ForceRefresh: force})
		return entry
	}
}

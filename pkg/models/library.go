package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID           int                `bun:",pk,nullzero" json:"id"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	Slug         string             `bun:",nullzero" json:"slug"`
	Name         string             `bun:",nullzero" json:"name"`
	LibraryPaths []*LibraryPath     `bun:"rel:has-many" json:"library_paths,omitempty"`
	Providers    []*LibraryProvider `bun:"rel:has-many" json:"providers,omitempty"`
}

// Roots returns the filesystem roots of the library.
func (l *Library) Roots() []string {
	roots := make([]string, 0, len(l.LibraryPaths))
	for _, lp := range l.LibraryPaths {
		roots = append(roots, lp.Filepath)
	}
	return roots
}

// ProviderOrder returns the enabled provider slugs in library order. An empty
// result means the library uses the default order.
func (l *Library) ProviderOrder() []string {
	var slugs []string
	for _, p := range l.Providers {
		if p.Enabled {
			slugs = append(slugs, p.ProviderSlug)
		}
	}
	return slugs
}

// LibraryProvider is one position in a library's metadata provider order.
type LibraryProvider struct {
	bun.BaseModel `bun:"table:library_providers,alias:lpr"`

	LibraryID    int    `bun:",pk" json:"library_id"`
	ProviderSlug string `bun:",pk" json:"provider_slug"`
	Enabled      bool   `bun:",notnull" json:"enabled"`
	Position     int    `bun:",notnull" json:"position"`
}

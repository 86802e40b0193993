package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

// maxSlugAttempts bounds the disambiguation of a derived slug.
const maxSlugAttempts = 100

// IsUniqueViolation reports whether err is a UNIQUE constraint failure. When target
// is set it must name the failing constraint: a "table.column" pair for a column
// index, or the index name for an expression index.
func IsUniqueViolation(err error, target string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return target == "" || strings.Contains(msg, target)
}

// WithUniqueSlug calls write with successive candidates derived from base until one
// does not collide on column. Each attempt runs in its own savepoint, so a collision
// leaves the surrounding transaction usable. It returns the slug that was written.
func WithUniqueSlug(ctx context.Context, db bun.IDB, column, base string, year *int, write func(ctx context.Context, tx bun.IDB, slug string) error) (string, error) {
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		slug := slugs.Disambiguate(base, year, attempt)
		err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return write(ctx, tx, slug)
		})
		if err == nil {
			return slug, nil
		}
		if !IsUniqueViolation(err, column) {
			return "", err
		}
	}
	return "", errors.Errorf("no free slug for %q after %d attempts", base, maxSlugAttempts)
}

// WriteSlug writes a resource under slug when one was supplied, and under the first
// free candidate derived from base otherwise. A supplied slug is reserved first and
// must then be clean. A collision on it is reported as a duplicate instead of being
// resolved.
func WriteSlug(ctx context.Context, db bun.IDB, resource, column, slug, base string, year *int, write func(ctx context.Context, tx bun.IDB, slug string) error) (string, error) {
	if slug == "" {
		return WithUniqueSlug(ctx, db, column, base, year, write)
	}
	slug = slugs.Reserve(slug)
	if !slugs.IsClean(slug) {
		return "", errcodes.ValidationError(fmt.Sprintf("%q is not a valid slug.", slug))
	}

	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return write(ctx, tx, slug)
	})
	if IsUniqueViolation(err, column) {
		return "", errcodes.DuplicateSlug(resource, slug)
	}
	if err != nil {
		return "", err
	}
	return slug, nil
}

package libraries

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

type RetrieveLibraryOptions struct {
	ID   *int
	Slug *string
}

type ListLibrariesOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateLibraryOptions struct {
	Columns            []string
	UpdateLibraryPaths bool
	UpdateProviders    bool
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := database.WriteSlug(ctx, tx, "Library", "libraries.slug", library.Slug, slugs.Base(library.Name), nil, func(ctx context.Context, tx bun.IDB, slug string) error {
			library.Slug = slug
			_, err := tx.
				NewInsert().
				Model(library).
				Returning("*").
				Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}

		err = insertPaths(ctx, tx, library, now)
		if err != nil {
			return err
		}
		return insertProviders(ctx, tx, library)
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.db.
		NewSelect().
		Model(library).
		Relation("LibraryPaths", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("filepath ASC")
		}).
		Relation("Providers", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("position ASC")
		})

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("l.slug = ?", *opts.Slug)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	return library, nil
}

// RetrieveLibraryForPath returns the library with the longest root containing path.
func (svc *Service) RetrieveLibraryForPath(ctx context.Context, path string) (*models.Library, error) {
	libraries, err := svc.ListLibraries(ctx, ListLibrariesOptions{})
	if err != nil {
		return nil, err
	}

	var best *models.Library
	bestLen := -1
	for _, library := range libraries {
		for _, root := range library.Roots() {
			root = strings.TrimRight(root, "/")
			if (path == root || strings.HasPrefix(path, root+"/")) && len(root) > bestLen {
				best = library
				bestLen = len(root)
			}
		}
	}
	if best == nil {
		return nil, errcodes.NotFound("Library")
	}
	return best, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&libraries).
		Relation("LibraryPaths", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("filepath ASC")
		}).
		Relation("Providers", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("position ASC")
		}).
		Order("l.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return libraries, total, nil
}

func (svc *Service) UpdateLibrary(ctx context.Context, library *models.Library, opts UpdateLibraryOptions) error {
	if len(opts.Columns) == 0 && !opts.UpdateLibraryPaths && !opts.UpdateProviders {
		return nil
	}

	for _, c := range opts.Columns {
		if c != "slug" {
			continue
		}
		library.Slug = slugs.Reserve(library.Slug)
		if !slugs.IsClean(library.Slug) {
			return errcodes.ValidationError("Library slug is not valid.")
		}
	}

	// Update updated_at.
	now := time.Now()
	library.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.
			NewUpdate().
			Model(library).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "libraries.slug") {
				return errcodes.DuplicateSlug("Library", library.Slug)
			}
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Library")
		}

		if opts.UpdateLibraryPaths {
			_, err := tx.
				NewDelete().
				Model((*models.LibraryPath)(nil)).
				Where("library_id = ?", library.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			err = insertPaths(ctx, tx, library, now)
			if err != nil {
				return err
			}
		}

		if opts.UpdateProviders {
			_, err := tx.
				NewDelete().
				Model((*models.LibraryProvider)(nil)).
				Where("library_id = ?", library.ID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			err = insertProviders(ctx, tx, library)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteLibrary removes a library and its paths. Its shows are kept without a
// library.
func (svc *Service) DeleteLibrary(ctx context.Context, libraryID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.Library)(nil)).
		Where("id = ?", libraryID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Library")
	}
	return nil
}

func insertPaths(ctx context.Context, tx bun.IDB, library *models.Library, now time.Time) error {
	if len(library.LibraryPaths) == 0 {
		return nil
	}
	for _, path := range library.LibraryPaths {
		path.LibraryID = library.ID
		path.CreatedAt = now
		path.UpdatedAt = now
	}
	_, err := tx.
		NewInsert().
		Model(&library.LibraryPaths).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

// insertProviders stores the provider order of a library, numbering positions from
// the order of library.Providers.
func insertProviders(ctx context.Context, tx bun.IDB, library *models.Library) error {
	if len(library.Providers) == 0 {
		return nil
	}
	for i, p := range library.Providers {
		p.LibraryID = library.ID
		p.Position = i
	}
	_, err := tx.
		NewInsert().
		Model(&library.Providers).
		Exec(ctx)
	if database.IsUniqueViolation(err, "") {
		return errcodes.ValidationError("A provider is listed more than once.")
	}
	return errors.WithStack(err)
}

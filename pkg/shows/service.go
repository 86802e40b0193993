package shows

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/cascade"
	"github.com/shishobooks/kino/pkg/collections"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/people"
	"github.com/shishobooks/kino/pkg/search"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/shishobooks/kino/pkg/sortname"
	"github.com/shishobooks/kino/pkg/studios"
	"github.com/uptrace/bun"
)

// Pseudo-columns accepted by UpdateShow. They write related rows instead of a column
// of the shows table.
const (
	ColumnExternalID = "external_id"
	ColumnCast       = "cast"
	ColumnStudio     = "studio"
	ColumnCollection = "collection"
)

// maxLookupAttempts bounds the slugs FindOrCreateShow walks through.
const maxLookupAttempts = 20

// RefreshFields are the fields a refresh lets providers overwrite.
var RefreshFields = []string{
	"sort_name", "overview", "status", "start_air", "end_air", "genres", "aliases",
	"cast", "studio", "collection",
}

// ResolveFunc completes a show through the metadata providers. force lists the
// fields that providers may overwrite. It must never return nil.
type ResolveFunc func(ctx context.Context, seed *models.Show, force []string) *models.Show

type RetrieveShowOptions struct {
	ID   *int
	Slug *string

	WithCast bool
}

type ListShowsOptions struct {
	Limit        *int
	Offset       *int
	LibraryID    *int
	Kind         *string
	CollectionID *int
	StudioID     *int
	Search       *string

	includeTotal bool
}

type UpdateShowOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateShow inserts a show with its external ids, cast, studio and collection. An
// empty slug is derived from the name and disambiguated with the start year. A movie
// gets its single movie entry in the same transaction.
func (svc *Service) CreateShow(ctx context.Context, show *models.Show) error {
	if show.Kind == "" {
		show.Kind = models.ShowKindSerie
	}
	if show.SortName == "" {
		show.SortName = sortname.ForTitle(show.Name)
	}
	if show.Status == "" {
		show.Status = models.ShowStatusUnknown
	}
	now := time.Now()
	if show.CreatedAt.IsZero() {
		show.CreatedAt = now
	}
	show.UpdatedAt = show.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := linkStudioAndCollection(ctx, tx, show)
		if err != nil {
			return err
		}

		// Any slug column: the movie entry shares the show's slug.
		slug, err := database.WriteSlug(ctx, tx, "Show", ".slug", show.Slug, slugs.Base(show.Name), show.StartYear(), func(ctx context.Context, tx bun.IDB, slug string) error {
			show.Slug = slug
			_, err := tx.NewInsert().Model(show).Returning("*").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if !show.IsMovie() {
				return nil
			}
			entry := &models.Entry{
				CreatedAt: show.CreatedAt,
				UpdatedAt: show.CreatedAt,
				Kind:      models.EntryKindMovie,
				ShowID:    &show.ID,
				Name:      &show.Name,
				Overview:  show.Overview,
				AirDate:   show.StartAir,
			}
			entry.Slug = slugs.Entry(slug, entry)
			_, err = tx.NewInsert().Model(entry).Returning("*").Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}
		show.Slug = slug

		err = externalids.Save(ctx, tx, models.ResourceShow, show.ID, show.ExternalID)
		if err != nil {
			return err
		}
		if len(show.Cast) > 0 {
			err = people.NewService(tx).SetShowCast(ctx, show.ID, show.Cast)
			if err != nil {
				return err
			}
		}
		return search.NewService(tx).IndexShow(ctx, show)
	})
}

func (svc *Service) RetrieveShow(ctx context.Context, opts RetrieveShowOptions) (*models.Show, error) {
	show := &models.Show{}

	q := svc.db.
		NewSelect().
		Model(show).
		Relation("Studio").
		Relation("Collection")

	if opts.ID != nil {
		q = q.Where("sh.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("sh.slug = ?", *opts.Slug)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Show")
		}
		return nil, errors.WithStack(err)
	}

	show.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourceShow, show.ID)
	if err != nil {
		return nil, err
	}
	if opts.WithCast {
		show.Cast, err = people.NewService(svc.db).ListShowCast(ctx, show.ID)
		if err != nil {
			return nil, err
		}
	}

	return show, nil
}

func (svc *Service) ListShows(ctx context.Context, opts ListShowsOptions) ([]*models.Show, error) {
	s, _, err := svc.listShowsWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListShowsWithTotal(ctx context.Context, opts ListShowsOptions) ([]*models.Show, int, error) {
	opts.includeTotal = true
	return svc.listShowsWithTotal(ctx, opts)
}

func (svc *Service) listShowsWithTotal(ctx context.Context, opts ListShowsOptions) ([]*models.Show, int, error) {
	shows := []*models.Show{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&shows).
		Relation("Studio").
		Order("sh.sort_name ASC", "sh.id ASC")

	if opts.Search != nil && *opts.Search != "" {
		ids, err := search.NewService(svc.db).ShowIDs(ctx, *opts.Search, 0, 0)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return shows, 0, nil
		}
		q = q.Where("sh.id IN (?)", bun.In(ids))
	}
	if opts.LibraryID != nil {
		q = q.Where("sh.library_id = ?", *opts.LibraryID)
	}
	if opts.Kind != nil {
		q = q.Where("sh.kind = ?", *opts.Kind)
	}
	if opts.CollectionID != nil {
		q = q.Where("sh.collection_id = ?", *opts.CollectionID)
	}
	if opts.StudioID != nil {
		q = q.Where("sh.studio_id = ?", *opts.StudioID)
	}
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

	ids := make([]int, 0, len(shows))
	for _, s := range shows {
		ids = append(ids, s.ID)
	}
	extIDs, err := externalids.Load(ctx, svc.db, models.ResourceShow, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range shows {
		s.ExternalID = extIDs[s.ID]
	}

	return shows, total, nil
}

// UpdateShow writes the listed columns of show. A slug change is validated and
// rewrites the slugs of everything below the show in the same transaction.
func (svc *Service) UpdateShow(ctx context.Context, show *models.Show, opts UpdateShowOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, pseudo := splitColumns(opts.Columns)
	if slices.Contains(columns, "slug") {
		show.Slug = slugs.Reserve(show.Slug)
	}
	if slices.Contains(columns, "slug") && !slugs.IsClean(show.Slug) {
		return errcodes.ValidationError(fmt.Sprintf("%q is not a valid slug.", show.Slug))
	}
	show.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var oldSlug string
		err := tx.NewSelect().Model((*models.Show)(nil)).Column("slug").Where("id = ?", show.ID).Scan(ctx, &oldSlug)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Show")
			}
			return errors.WithStack(err)
		}

		if pseudo[ColumnStudio] || pseudo[ColumnCollection] {
			err = linkStudioAndCollection(ctx, tx, show)
			if err != nil {
				return err
			}
			if pseudo[ColumnStudio] {
				columns = append(columns, "studio_id")
			}
			if pseudo[ColumnCollection] {
				columns = append(columns, "collection_id")
			}
		}

		_, err = tx.
			NewUpdate().
			Model(show).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "shows.slug") {
				return errcodes.DuplicateSlug("Show", show.Slug)
			}
			return errors.WithStack(err)
		}

		if show.Slug != oldSlug && slices.Contains(columns, "slug") {
			err = cascade.ShowSlugChanged(ctx, tx, show.ID, oldSlug)
			if database.IsUniqueViolation(err, "") {
				return errcodes.Conflict(fmt.Sprintf("Show slug %q collides with the slug of another show's content.", show.Slug))
			}
			if err != nil {
				return err
			}
		}

		if pseudo[ColumnExternalID] {
			err = externalids.Save(ctx, tx, models.ResourceShow, show.ID, show.ExternalID)
			if err != nil {
				return err
			}
		}
		if pseudo[ColumnCast] {
			err = people.NewService(tx).SetShowCast(ctx, show.ID, show.Cast)
			if err != nil {
				return err
			}
		}
		if slices.Contains(columns, "name") || slices.Contains(columns, "aliases") {
			err = search.NewService(tx).IndexShow(ctx, show)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteShow removes a show. Seasons, entries, tracks, video joins and cast go with it
// through foreign keys. External ids and the index row are removed here.
func (svc *Service) DeleteShow(ctx context.Context, showID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var seasonIDs, entryIDs []int
		err := tx.NewSelect().Model((*models.Season)(nil)).Column("id").Where("show_id = ?", showID).Scan(ctx, &seasonIDs)
		if err != nil {
			return errors.WithStack(err)
		}
		err = tx.NewSelect().Model((*models.Entry)(nil)).Column("id").Where("show_id = ?", showID).Scan(ctx, &entryIDs)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Show)(nil)).
			Where("id = ?", showID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Show")
		}

		err = externalids.Delete(ctx, tx, models.ResourceShow, []int{showID})
		if err != nil {
			return err
		}
		err = externalids.Delete(ctx, tx, models.ResourceSeason, seasonIDs)
		if err != nil {
			return err
		}
		err = externalids.Delete(ctx, tx, models.ResourceEntry, entryIDs)
		if err != nil {
			return err
		}
		return search.NewService(tx).DeleteFromShowIndex(ctx, showID)
	})
}

// FindOrCreateShow returns the show seed describes, creating it when none exists.
//
// A show holding one of the seed's external ids is the same show. Otherwise the
// candidates are the seed's slug and its disambiguated forms, in order: the first that
// is free is created, and an existing show of the same kind whose start year is
// unknown or equal is reused. Missing fields of a reused show are filled from the
// seed. resolve, when set, completes the seed before it is created.
func (svc *Service) FindOrCreateShow(ctx context.Context, seed *models.Show, resolve ResolveFunc) (*models.Show, bool, error) {
	existing, err := svc.findByExternalID(ctx, seed.ExternalID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		show, err := svc.patchMissing(ctx, existing, seed)
		return show, false, err
	}

	base := slugs.Base(seed.Name)
	year := seed.StartYear()
	raced := false
	for attempt := 0; attempt < maxLookupAttempts; attempt++ {
		slug := slugs.Disambiguate(base, year, attempt)

		existing, err := svc.RetrieveShow(ctx, RetrieveShowOptions{Slug: &slug})
		if err == nil {
			if !compatible(existing, seed) {
				continue
			}
			show, err := svc.patchMissing(ctx, existing, seed)
			return show, false, err
		}
		if !errors.Is(err, errcodes.NotFound("Show")) {
			return nil, false, err
		}

		show := seed
		if resolve != nil {
			show = resolve(ctx, seed, nil)
		}
		show.Slug = slug
		show.Kind = seed.Kind
		if show.Name == "" {
			show.Name = seed.Name
		}
		if show.LibraryID == nil {
			show.LibraryID = seed.LibraryID
		}

		err = svc.CreateShow(ctx, show)
		if err == nil {
			return show, true, nil
		}
		var codeErr *errcodes.Error
		if !errors.As(err, &codeErr) || codeErr.Code != "duplicate_slug" {
			return nil, false, err
		}
		// Someone else took the slug since the lookup. Look at it once more.
		if !raced {
			raced = true
			attempt--
		}
	}
	return nil, false, errors.Errorf("no usable slug for show %q after %d attempts", seed.Name, maxLookupAttempts)
}

// RefreshShow runs a stored show through resolve again, letting providers overwrite
// RefreshFields, and saves the result.
func (svc *Service) RefreshShow(ctx context.Context, showID int, resolve ResolveFunc) (*models.Show, error) {
	show, err := svc.RetrieveShow(ctx, RetrieveShowOptions{ID: &showID, WithCast: true})
	if err != nil {
		return nil, err
	}

	refreshed := resolve(ctx, show, RefreshFields)

	show.SortName = refreshed.SortName
	show.Overview = refreshed.Overview
	show.Status = refreshed.Status
	show.StartAir = refreshed.StartAir
	show.EndAir = refreshed.EndAir
	show.Genres = refreshed.Genres
	show.Aliases = refreshed.Aliases
	show.Cast = refreshed.Cast
	show.Studio = refreshed.Studio
	show.Collection = refreshed.Collection
	show.ExternalID = refreshed.ExternalID
	if show.SortName == "" {
		show.SortName = sortname.ForTitle(show.Name)
	}
	if show.Status == "" {
		show.Status = models.ShowStatusUnknown
	}

	err = svc.UpdateShow(ctx, show, UpdateShowOptions{Columns: []string{
		"sort_name", "overview", "status", "start_air", "end_air", "genres", "aliases",
		ColumnCast, ColumnStudio, ColumnCollection, ColumnExternalID,
	}})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveShow(ctx, RetrieveShowOptions{ID: &showID, WithCast: true})
}

// LoadSeasons returns the seasons of a show by number.
func (svc *Service) LoadSeasons(ctx context.Context, showID int) ([]*models.Season, error) {
	seasons := []*models.Season{}
	err := svc.db.NewSelect().
		Model(&seasons).
		Where("se.show_id = ?", showID).
		Order("se.season_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return seasons, nil
}

func (svc *Service) findByExternalID(ctx context.Context, ids map[string]models.ExternalID) (*models.Show, error) {
	for providerSlug, id := range ids {
		matches, err := externalids.FindSubset(ctx, svc.db, models.ResourceShow, map[string]string{providerSlug: id.DataID})
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return svc.RetrieveShow(ctx, RetrieveShowOptions{ID: &matches[0]})
		}
	}
	return nil, nil
}

// patchMissing fills the fields of show that are unset from seed.
func (svc *Service) patchMissing(ctx context.Context, show, seed *models.Show) (*models.Show, error) {
	columns := []string{}
	if show.StartAir == nil && seed.StartAir != nil {
		show.StartAir = seed.StartAir
		columns = append(columns, "start_air")
	}
	if show.LibraryID == nil && seed.LibraryID != nil {
		show.LibraryID = seed.LibraryID
		columns = append(columns, "library_id")
	}
	if show.Overview == nil && seed.Overview != nil {
		show.Overview = seed.Overview
		columns = append(columns, "overview")
	}
	if show.CollectionID == nil && seed.Collection != nil {
		show.Collection = seed.Collection
		columns = append(columns, ColumnCollection)
	}
	if len(seed.ExternalID) > 0 {
		show.ExternalID = models.MergeExternalIDs(show.ExternalID, seed.ExternalID)
		columns = append(columns, ColumnExternalID)
	}

	err := svc.UpdateShow(ctx, show, UpdateShowOptions{Columns: columns})
	if err != nil {
		return nil, err
	}
	return show, nil
}

// compatible reports whether an existing show can stand for seed.
func compatible(existing, seed *models.Show) bool {
	if seed.Kind != "" && existing.Kind != seed.Kind {
		return false
	}
	a, b := existing.StartYear(), seed.StartYear()
	return a == nil || b == nil || *a == *b
}

// linkStudioAndCollection finds or creates the studio and collection a show points to
// by name.
func linkStudioAndCollection(ctx context.Context, tx bun.IDB, show *models.Show) error {
	if show.Studio != nil && show.Studio.Name != "" {
		studio, err := studios.NewService(tx).FindOrCreateStudio(ctx, show.Studio.Name, show.Studio.ExternalID)
		if err != nil {
			return err
		}
		show.Studio = studio
		show.StudioID = &studio.ID
	} else if show.Studio == nil {
		show.StudioID = nil
	}

	if show.Collection != nil && show.Collection.Name != "" {
		collection, err := collections.NewService(tx).FindOrCreateCollection(ctx, show.Collection.Name, show.Collection.ExternalID)
		if err != nil {
			return err
		}
		show.Collection = collection
		show.CollectionID = &collection.ID
	} else if show.Collection == nil {
		show.CollectionID = nil
	}
	return nil
}

func splitColumns(in []string) ([]string, map[string]bool) {
	columns := make([]string, 0, len(in))
	pseudo := map[string]bool{}
	for _, c := range in {
		switch c {
		case ColumnExternalID, ColumnCast, ColumnStudio, ColumnCollection:
			pseudo[c] = true
		default:
			columns = append(columns, c)
		}
	}
	return columns, pseudo
}

package entries

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/cascade"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

// RefreshFields are the fields a refresh lets providers overwrite.
var RefreshFields = []string{"name", "overview", "air_date", "runtime"}

// slugColumns are the columns an entry slug derives from.
var slugColumns = []string{"kind", "show_id", "season_number", "episode_number", "absolute_number", "name"}

// numberingColumns are the columns checked by Entry.NumberingIsValid.
var numberingColumns = []string{"kind", "season_number", "episode_number", "absolute_number", "episode_order"}

// ResolveFunc completes an entry through the metadata providers. It must never return
// nil.
type ResolveFunc func(ctx context.Context, seed *models.Entry, force []string) *models.Entry

type RetrieveEntryOptions struct {
	ID   *int
	Slug *string

	// Numbering lookup. ShowID and Kind are required for it to apply.
	ShowID         *int
	Kind           *string
	SeasonNumber   *int
	EpisodeNumber  *int
	AbsoluteNumber *int
	Order          *float64

	WithVideos bool
	WithTracks bool
}

type ListEntriesOptions struct {
	ShowID       *int
	SeasonNumber *int
	Kind         *string
	Available    *bool
	Limit        *int
	Offset       *int

	includeTotal bool
}

type UpdateEntryOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateEntry inserts an entry. Episodes, specials and movies get the slug of their
// numbers, disambiguated when another show's entry holds it, and an entry already
// holding those numbers is a conflict. Extras and unknown entries are slugged from
// their name, disambiguated on collision unless a slug was supplied.
func (svc *Service) CreateEntry(ctx context.Context, entry *models.Entry) error {
	if !entry.NumberingIsValid() {
		return errcodes.ValidationError("Entry numbering does not fit its kind.")
	}
	if entry.ShowID == nil && entry.Kind != models.EntryKindUnknown {
		return errcodes.ValidationError("Only unknown entries can exist without a show.")
	}

	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = entry.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		showSlug := ""
		if entry.ShowID != nil {
			var err error
			showSlug, err = showSlugOf(ctx, tx, *entry.ShowID)
			if err != nil {
				return err
			}
		}

		insert := func(ctx context.Context, tx bun.IDB, slug string) error {
			entry.Slug = slug
			_, err := tx.NewInsert().Model(entry).Returning("*").Exec(ctx)
			return errors.WithStack(err)
		}

		var err error
		if isNumbered(entry.Kind) {
			_, err = database.WithUniqueSlug(ctx, tx, "entries.slug", slugs.Entry(showSlug, entry), nil, insert)
			err = numberingError(err, entry)
		} else {
			supplied := entry.Slug
			_, err = database.WriteSlug(ctx, tx, "Entry", "entries.slug", supplied, slugs.Entry(showSlug, entry), nil, insert)
		}
		if err != nil {
			return err
		}

		return externalids.Save(ctx, tx, models.ResourceEntry, entry.ID, entry.ExternalID)
	})
}

// CreateUnknownEntry creates the placeholder entry of a file nothing could identify.
// It has no show and is slugged from the file name.
func (svc *Service) CreateUnknownEntry(ctx context.Context, path string) (*models.Entry, error) {
	name := slugs.FromFileName(path)
	entry := &models.Entry{
		Kind: models.EntryKindUnknown,
		Name: &name,
	}
	err := svc.CreateEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (svc *Service) RetrieveEntry(ctx context.Context, opts RetrieveEntryOptions) (*models.Entry, error) {
	entry := &models.Entry{}

	q := svc.db.
		NewSelect().
		Model(entry).
		Relation("Show")

	if opts.ID != nil {
		q = q.Where("e.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("e.slug = ?", *opts.Slug)
	}
	if opts.ShowID != nil {
		q = q.Where("e.show_id = ?", *opts.ShowID)
	}
	if opts.Kind != nil {
		q = q.Where("e.kind = ?", *opts.Kind)
	}
	if opts.SeasonNumber != nil {
		q = q.Where("e.season_number = ?", *opts.SeasonNumber)
	}
	if opts.EpisodeNumber != nil {
		q = q.Where("e.episode_number = ?", *opts.EpisodeNumber)
	}
	if opts.AbsoluteNumber != nil {
		q = q.Where("e.absolute_number = ?", *opts.AbsoluteNumber)
	}
	if opts.Order != nil {
		q = q.Where("e.episode_order = ?", *opts.Order)
	}
	if opts.WithVideos {
		q = q.Relation("Videos", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ev.slug ASC")
		}).Relation("Videos.Video")
	}
	if opts.WithTracks {
		q = q.Relation("Tracks", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("t.slug ASC")
		})
	}

	err := q.Order("e.id ASC").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Entry")
		}
		return nil, errors.WithStack(err)
	}

	entry.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourceEntry, entry.ID)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (svc *Service) ListEntries(ctx context.Context, opts ListEntriesOptions) ([]*models.Entry, error) {
	e, _, err := svc.listEntriesWithTotal(ctx, opts)
	return e, errors.WithStack(err)
}

func (svc *Service) ListEntriesWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.Entry, int, error) {
	opts.includeTotal = true
	return svc.listEntriesWithTotal(ctx, opts)
}

func (svc *Service) listEntriesWithTotal(ctx context.Context, opts ListEntriesOptions) ([]*models.Entry, int, error) {
	entries := []*models.Entry{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&entries).
		OrderExpr("e.season_number ASC NULLS LAST").
		OrderExpr("COALESCE(e.episode_number, e.absolute_number) ASC").
		Order("e.episode_order ASC", "e.id ASC")

	if opts.ShowID != nil {
		q = q.Where("e.show_id = ?", *opts.ShowID)
	}
	if opts.SeasonNumber != nil {
		q = q.Where("e.season_number = ?", *opts.SeasonNumber)
	}
	if opts.Kind != nil {
		q = q.Where("e.kind = ?", *opts.Kind)
	}
	if opts.Available != nil {
		if *opts.Available {
			q = q.Where("e.available_since IS NOT NULL")
		} else {
			q = q.Where("e.available_since IS NULL")
		}
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

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	extIDs, err := externalids.Load(ctx, svc.db, models.ResourceEntry, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range entries {
		e.ExternalID = extIDs[e.ID]
	}

	return entries, total, nil
}

// UpdateEntry writes the listed columns. Changing the numbering, kind, show or name
// derives the slug again along with the slugs of the entry's video joins and tracks.
// The show's available counts follow a change of show.
func (svc *Service) UpdateEntry(ctx context.Context, entry *models.Entry, opts UpdateEntryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, saveExternalID := splitExternalID(opts.Columns)
	if containsAny(columns, numberingColumns) && !entry.NumberingIsValid() {
		return errcodes.ValidationError("Entry numbering does not fit its kind.")
	}
	if entry.ShowID == nil && entry.Kind != models.EntryKindUnknown {
		return errcodes.ValidationError("Only unknown entries can exist without a show.")
	}
	entry.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var oldShowID *int
		err := tx.NewSelect().Model((*models.Entry)(nil)).Column("show_id").Where("id = ?", entry.ID).Scan(ctx, &oldShowID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Entry")
			}
			return errors.WithStack(err)
		}

		_, err = tx.
			NewUpdate().
			Model(entry).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return numberingError(errors.WithStack(err), entry)
		}

		if containsAny(columns, slugColumns) {
			err = cascade.EntryChanged(ctx, tx, entry.ID)
			if err != nil {
				return numberingError(err, entry)
			}
		}

		if slices.Contains(columns, "show_id") || slices.Contains(columns, "kind") {
			showIDs := []int{}
			if oldShowID != nil {
				showIDs = append(showIDs, *oldShowID)
			}
			if entry.ShowID != nil && (oldShowID == nil || *oldShowID != *entry.ShowID) {
				showIDs = append(showIDs, *entry.ShowID)
			}
			err = cascade.RecountShows(ctx, tx, showIDs)
			if err != nil {
				return err
			}
		}

		if saveExternalID {
			return externalids.Save(ctx, tx, models.ResourceEntry, entry.ID, entry.ExternalID)
		}
		return nil
	})
}

// DeleteEntry removes an entry with its joins and tracks, and recounts its show.
func (svc *Service) DeleteEntry(ctx context.Context, entryID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		showIDs, err := cascade.ShowIDsForEntries(ctx, tx, []int{entryID})
		if err != nil {
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Entry)(nil)).
			Where("id = ?", entryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Entry")
		}

		err = externalids.Delete(ctx, tx, models.ResourceEntry, []int{entryID})
		if err != nil {
			return err
		}
		return cascade.RecountShows(ctx, tx, showIDs)
	})
}

// FindOrCreateEntry returns the entry of seed's show holding seed's numbers, creating
// it through resolve when there is none. Extras and unknown entries are never looked
// up and always created. Losing a creation race falls back to the winner's entry.
func (svc *Service) FindOrCreateEntry(ctx context.Context, seed *models.Entry, resolve ResolveFunc) (*models.Entry, bool, error) {
	if !isNumbered(seed.Kind) || seed.ShowID == nil {
		entry := seed
		if resolve != nil && seed.ShowID != nil {
			entry = keepIdentity(resolve(ctx, seed, nil), seed)
		}
		err := svc.CreateEntry(ctx, entry)
		if err != nil {
			return nil, false, err
		}
		return entry, true, nil
	}

	lookup := numberingLookup(seed)
	existing, err := svc.RetrieveEntry(ctx, lookup)
	if err == nil {
		entry, err := svc.patchMissing(ctx, existing, seed)
		return entry, false, err
	}
	if !errors.Is(err, errcodes.NotFound("Entry")) {
		return nil, false, err
	}

	entry := seed
	if resolve != nil {
		entry = keepIdentity(resolve(ctx, seed, nil), seed)
	}

	err = svc.CreateEntry(ctx, entry)
	if err == nil {
		return entry, true, nil
	}
	var codeErr *errcodes.Error
	if !errors.As(err, &codeErr) || codeErr.Code != "conflict" {
		return nil, false, err
	}

	existing, lookupErr := svc.RetrieveEntry(ctx, lookup)
	if errors.Is(lookupErr, errcodes.NotFound("Entry")) {
		// The conflict was not on the numbering.
		return nil, false, err
	}
	if lookupErr != nil {
		return nil, false, lookupErr
	}
	entry, err = svc.patchMissing(ctx, existing, seed)
	return entry, false, err
}

// RefreshEntry runs a stored entry through resolve again and saves the fields it
// returns.
func (svc *Service) RefreshEntry(ctx context.Context, entryID int, resolve ResolveFunc) (*models.Entry, error) {
	entry, err := svc.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &entryID})
	if err != nil {
		return nil, err
	}

	refreshed := resolve(ctx, entry, RefreshFields)
	columns := []string{"overview", "air_date", "runtime", "external_id"}
	entry.Overview = refreshed.Overview
	entry.AirDate = refreshed.AirDate
	entry.Runtime = refreshed.Runtime
	entry.ExternalID = refreshed.ExternalID
	// The name of an extra is part of its slug and stays as stored.
	if isNumbered(entry.Kind) {
		entry.Name = refreshed.Name
		columns = append(columns, "name")
	}

	err = svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: columns})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &entryID})
}

// LoadVideos returns the video joins of an entry with their videos, by slug.
func (svc *Service) LoadVideos(ctx context.Context, entryID int) ([]*models.EntryVideo, error) {
	joins := []*models.EntryVideo{}
	err := svc.db.NewSelect().
		Model(&joins).
		Relation("Video").
		Where("ev.entry_id = ?", entryID).
		Order("ev.slug ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return joins, nil
}

// patchMissing fills the fields of entry that are unset from seed.
func (svc *Service) patchMissing(ctx context.Context, entry, seed *models.Entry) (*models.Entry, error) {
	columns := []string{}
	if entry.Name == nil && seed.Name != nil {
		entry.Name = seed.Name
		columns = append(columns, "name")
	}
	if entry.Overview == nil && seed.Overview != nil {
		entry.Overview = seed.Overview
		columns = append(columns, "overview")
	}
	if entry.AirDate == nil && seed.AirDate != nil {
		entry.AirDate = seed.AirDate
		columns = append(columns, "air_date")
	}
	if entry.Runtime == nil && seed.Runtime != nil {
		entry.Runtime = seed.Runtime
		columns = append(columns, "runtime")
	}
	if len(seed.ExternalID) > 0 {
		entry.ExternalID = models.MergeExternalIDs(entry.ExternalID, seed.ExternalID)
		columns = append(columns, "external_id")
	}
	err := svc.UpdateEntry(ctx, entry, UpdateEntryOptions{Columns: columns})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// numberingLookup finds the entry that holds the numbers of seed.
func numberingLookup(seed *models.Entry) RetrieveEntryOptions {
	opts := RetrieveEntryOptions{ShowID: seed.ShowID, Kind: &seed.Kind}
	switch seed.Kind {
	case models.EntryKindEpisode:
		if seed.AbsoluteNumber != nil {
			opts.AbsoluteNumber = seed.AbsoluteNumber
		} else {
			opts.SeasonNumber = seed.SeasonNumber
			opts.EpisodeNumber = seed.EpisodeNumber
		}
	case models.EntryKindSpecial:
		opts.EpisodeNumber = seed.EpisodeNumber
	}
	return opts
}

// keepIdentity restores the fields that identify seed on a resolved copy.
func keepIdentity(resolved, seed *models.Entry) *models.Entry {
	resolved.Kind = seed.Kind
	resolved.ShowID = seed.ShowID
	resolved.SeasonNumber = seed.SeasonNumber
	resolved.EpisodeNumber = seed.EpisodeNumber
	resolved.AbsoluteNumber = seed.AbsoluteNumber
	resolved.Slug = seed.Slug
	if seed.Kind == models.EntryKindExtra || seed.Kind == models.EntryKindUnknown {
		resolved.Name = seed.Name
	}
	return resolved
}

// numberingError turns the unique violations an entry write can hit into conflicts.
func numberingError(err error, entry *models.Entry) error {
	switch {
	case database.IsUniqueViolation(err, "ux_entries_numbering"):
		return errcodes.Conflict("An entry with the same numbers already exists in this show.")
	case database.IsUniqueViolation(err, "entries.slug"):
		return errcodes.Conflict(fmt.Sprintf("Entry slug %q is already used by another entry.", entry.Slug))
	}
	return err
}

func showSlugOf(ctx context.Context, db bun.IDB, showID int) (string, error) {
	var slug string
	err := db.NewSelect().Model((*models.Show)(nil)).Column("slug").Where("id = ?", showID).Scan(ctx, &slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errcodes.NotFound("Show")
		}
		return "", errors.WithStack(err)
	}
	return slug, nil
}

func isNumbered(kind string) bool {
	switch kind {
	case models.EntryKindEpisode, models.EntryKindSpecial, models.EntryKindMovie:
		return true
	}
	return false
}

func containsAny(columns, targets []string) bool {
	for _, c := range columns {
		if slices.Contains(targets, c) {
			return true
		}
	}
	return false
}

func splitExternalID(columns []string) ([]string, bool) {
	out := make([]string, 0, len(columns))
	found := false
	for _, c := range columns {
		if c == "external_id" {
			found = true
			continue
		}
		out = append(out, c)
	}
	return out, found
}

package tracks

import (
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/cascade"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/uptrace/bun"
)

// groupColumns are the columns that place a track in its (entry, type, language,
// forced) group. Changing one of them assigns a new index.
var groupColumns = []string{"entry_id", "type", "language", "is_forced"}

type RetrieveTrackOptions struct {
	ID   *int
	Slug *string
	Path *string
}

type ListTracksOptions struct {
	EntryID *int
	Type    *string
	Limit   *int
	Offset  *int

	includeTotal bool
}

type UpdateTrackOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateTrack inserts a track of an entry. The track is given the next index of its
// group and its slug derives from the entry slug.
func (svc *Service) CreateTrack(ctx context.Context, track *models.Track) error {
	now := time.Now()
	if track.CreatedAt.IsZero() {
		track.CreatedAt = now
	}
	track.UpdatedAt = track.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		track.Slug = "~" + uuid.NewString()
		_, err := tx.
			NewInsert().
			Model(track).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		err = cascade.TrackChanged(ctx, tx, track.ID, true)
		if err != nil {
			return trackError(err)
		}
		return svc.reload(ctx, tx, track)
	})
}

func (svc *Service) RetrieveTrack(ctx context.Context, opts RetrieveTrackOptions) (*models.Track, error) {
	track := &models.Track{}

	q := svc.db.
		NewSelect().
		Model(track)

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("t.slug = ?", *opts.Slug)
	}
	if opts.Path != nil {
		q = q.Where("t.path = ?", *opts.Path)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Track")
		}
		return nil, errors.WithStack(err)
	}

	return track, nil
}

// ListForEntry returns the tracks of an entry by type then slug.
func (svc *Service) ListForEntry(ctx context.Context, entryID int) ([]*models.Track, error) {
	return svc.ListTracks(ctx, ListTracksOptions{EntryID: &entryID})
}

func (svc *Service) ListTracks(ctx context.Context, opts ListTracksOptions) ([]*models.Track, error) {
	t, _, err := svc.listTracksWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTracksWithTotal(ctx context.Context, opts ListTracksOptions) ([]*models.Track, int, error) {
	opts.includeTotal = true
	return svc.listTracksWithTotal(ctx, opts)
}

func (svc *Service) listTracksWithTotal(ctx context.Context, opts ListTracksOptions) ([]*models.Track, int, error) {
	tracks := []*models.Track{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tracks).
		Order("t.entry_id ASC", "t.type ASC", "t.slug ASC")

	if opts.EntryID != nil {
		q = q.Where("t.entry_id = ?", *opts.EntryID)
	}
	if opts.Type != nil {
		q = q.Where("t.type = ?", *opts.Type)
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

	return tracks, total, nil
}

// UpdateTrack writes the listed columns and derives the slug again. Moving the track
// to another group gives it the next index of that group. An explicit index is kept
// as given.
func (svc *Service) UpdateTrack(ctx context.Context, track *models.Track, opts UpdateTrackOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns := append([]string{}, opts.Columns...)
	track.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	reindex := false
	for _, c := range columns {
		if slices.Contains(groupColumns, c) {
			reindex = true
		}
	}
	if slices.Contains(columns, "track_index") {
		reindex = false
	}
	derive := reindex || slices.Contains(columns, "track_index")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		// Park the slug first so the new one can take an old sibling's place.
		if derive {
			_, err := tx.NewRaw("UPDATE tracks SET slug = ? WHERE id = ?", "~"+uuid.NewString(), track.ID).Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		res, err := tx.
			NewUpdate().
			Model(track).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Track")
		}

		if derive {
			err = cascade.TrackChanged(ctx, tx, track.ID, reindex)
			if err != nil {
				return trackError(err)
			}
		}
		return svc.reload(ctx, tx, track)
	})
}

func (svc *Service) DeleteTrack(ctx context.Context, trackID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.Track)(nil)).
		Where("id = ?", trackID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Track")
	}
	return nil
}

// UpsertExternalTrack stores the external subtitle cand as a track of entryID. A track
// already stored for the same file is updated in place.
func (svc *Service) UpsertExternalTrack(ctx context.Context, entryID int, cand *identifier.TrackCandidate) (*models.Track, error) {
	track := &models.Track{
		EntryID:    entryID,
		Type:       models.TrackTypeSubtitle,
		Codec:      cand.Codec,
		IsDefault:  cand.IsDefault,
		IsForced:   cand.IsForced,
		IsExternal: true,
		Path:       &cand.Path,
	}
	if cand.Language != "" {
		track.Language = &cand.Language
	}

	existing, err := svc.RetrieveTrack(ctx, RetrieveTrackOptions{Path: &cand.Path})
	if errors.Is(err, errcodes.NotFound("Track")) {
		err = svc.CreateTrack(ctx, track)
		if err != nil {
			return nil, err
		}
		return track, nil
	}
	if err != nil {
		return nil, err
	}

	columns := []string{"codec", "is_default"}
	if existing.EntryID != track.EntryID {
		columns = append(columns, "entry_id")
	}
	if existing.IsForced != track.IsForced {
		columns = append(columns, "is_forced")
	}
	if !sameLanguage(existing.Language, track.Language) {
		columns = append(columns, "language")
	}
	track.ID = existing.ID
	track.CreatedAt = existing.CreatedAt
	track.TrackIndex = existing.TrackIndex
	track.Slug = existing.Slug

	err = svc.UpdateTrack(ctx, track, UpdateTrackOptions{Columns: columns})
	if err != nil {
		return nil, err
	}
	return track, nil
}

func (svc *Service) reload(ctx context.Context, db bun.IDB, track *models.Track) error {
	err := db.NewSelect().Model(track).WherePK().Scan(ctx)
	return errors.WithStack(err)
}

func trackError(err error) error {
	if database.IsUniqueViolation(err, "tracks.slug") {
		return errcodes.Conflict("Another track of this entry already has the same language, index and type.")
	}
	return err
}

func sameLanguage(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

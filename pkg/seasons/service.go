package seasons

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
var RefreshFields = []string{"name", "overview", "start_air", "end_air"}

// ResolveFunc completes a season through the metadata providers. It must never
// return nil.
type ResolveFunc func(ctx context.Context, seed *models.Season, force []string) *models.Season

type RetrieveSeasonOptions struct {
	ID           *int
	Slug         *string
	ShowID       *int
	SeasonNumber *int
}

type ListSeasonsOptions struct {
	ShowID *int
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateSeasonOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateSeason inserts a season of an existing show. Its slug always derives from the
// show and the season number.
func (svc *Service) CreateSeason(ctx context.Context, season *models.Season) error {
	now := time.Now()
	if season.CreatedAt.IsZero() {
		season.CreatedAt = now
	}
	season.UpdatedAt = season.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		show, err := showSlug(ctx, tx, season.ShowID)
		if err != nil {
			return err
		}
		season.Slug = slugs.Season(show, season.SeasonNumber)

		_, err = tx.
			NewInsert().
			Model(season).
			Returning("*").
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "seasons.") {
				return errcodes.Conflict(fmt.Sprintf("Season %d already exists.", season.SeasonNumber))
			}
			return errors.WithStack(err)
		}

		return externalids.Save(ctx, tx, models.ResourceSeason, season.ID, season.ExternalID)
	})
}

func (svc *Service) RetrieveSeason(ctx context.Context, opts RetrieveSeasonOptions) (*models.Season, error) {
	season := &models.Season{}

	q := svc.db.
		NewSelect().
		Model(season).
		Relation("Show")

	if opts.ID != nil {
		q = q.Where("se.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("se.slug = ?", *opts.Slug)
	}
	if opts.ShowID != nil {
		q = q.Where("se.show_id = ?", *opts.ShowID)
	}
	if opts.SeasonNumber != nil {
		q = q.Where("se.season_number = ?", *opts.SeasonNumber)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Season")
		}
		return nil, errors.WithStack(err)
	}

	season.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourceSeason, season.ID)
	if err != nil {
		return nil, err
	}

	return season, nil
}

func (svc *Service) ListSeasons(ctx context.Context, opts ListSeasonsOptions) ([]*models.Season, error) {
	s, _, err := svc.listSeasonsWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListSeasonsWithTotal(ctx context.Context, opts ListSeasonsOptions) ([]*models.Season, int, error) {
	opts.includeTotal = true
	return svc.listSeasonsWithTotal(ctx, opts)
}

func (svc *Service) listSeasonsWithTotal(ctx context.Context, opts ListSeasonsOptions) ([]*models.Season, int, error) {
	seasons := []*models.Season{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&seasons).
		Order("se.show_id ASC", "se.season_number ASC")

	if opts.ShowID != nil {
		q = q.Where("se.show_id = ?", *opts.ShowID)
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

	ids := make([]int, 0, len(seasons))
	for _, s := range seasons {
		ids = append(ids, s.ID)
	}
	extIDs, err := externalids.Load(ctx, svc.db, models.ResourceSeason, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range seasons {
		s.ExternalID = extIDs[s.ID]
	}

	return seasons, total, nil
}

// UpdateSeason writes the listed columns. A new season number moves the slug with it.
func (svc *Service) UpdateSeason(ctx context.Context, season *models.Season, opts UpdateSeasonOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, saveExternalID := splitExternalID(opts.Columns)
	season.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(season).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "seasons.") {
				return errcodes.Conflict(fmt.Sprintf("Season %d already exists.", season.SeasonNumber))
			}
			return errors.WithStack(err)
		}

		if slices.Contains(columns, "season_number") {
			err = cascade.SeasonChanged(ctx, tx, season.ID)
			if database.IsUniqueViolation(err, "") {
				return errcodes.Conflict(fmt.Sprintf("Season %d already exists.", season.SeasonNumber))
			}
			if err != nil {
				return err
			}
		}

		if saveExternalID {
			return externalids.Save(ctx, tx, models.ResourceSeason, season.ID, season.ExternalID)
		}
		return nil
	})
}

func (svc *Service) DeleteSeason(ctx context.Context, seasonID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*models.Season)(nil)).
			Where("id = ?", seasonID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Season")
		}
		return externalids.Delete(ctx, tx, models.ResourceSeason, []int{seasonID})
	})
}

// FindOrCreateSeason returns the season of seed.ShowID numbered seed.SeasonNumber,
// creating it through resolve when it does not exist yet. Losing a creation race to
// another writer falls back to the season that writer created.
func (svc *Service) FindOrCreateSeason(ctx context.Context, seed *models.Season, resolve ResolveFunc) (*models.Season, bool, error) {
	lookup := RetrieveSeasonOptions{ShowID: &seed.ShowID, SeasonNumber: &seed.SeasonNumber}

	existing, err := svc.RetrieveSeason(ctx, lookup)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, errcodes.NotFound("Season")) {
		return nil, false, err
	}

	season := seed
	if resolve != nil {
		season = resolve(ctx, seed, nil)
		season.ShowID = seed.ShowID
		season.SeasonNumber = seed.SeasonNumber
	}

	err = svc.CreateSeason(ctx, season)
	if err == nil {
		return season, true, nil
	}
	var codeErr *errcodes.Error
	if !errors.As(err, &codeErr) || codeErr.Code != "conflict" {
		return nil, false, err
	}

	existing, err = svc.RetrieveSeason(ctx, lookup)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// RefreshSeason runs a stored season through resolve again and saves the fields it
// returns.
func (svc *Service) RefreshSeason(ctx context.Context, seasonID int, resolve ResolveFunc) (*models.Season, error) {
	season, err := svc.RetrieveSeason(ctx, RetrieveSeasonOptions{ID: &seasonID})
	if err != nil {
		return nil, err
	}

	refreshed := resolve(ctx, season, RefreshFields)
	season.Name = refreshed.Name
	season.Overview = refreshed.Overview
	season.StartAir = refreshed.StartAir
	season.EndAir = refreshed.EndAir
	season.ExternalID = refreshed.ExternalID

	err = svc.UpdateSeason(ctx, season, UpdateSeasonOptions{Columns: []string{
		"name", "overview", "start_air", "end_air", "external_id",
	}})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveSeason(ctx, RetrieveSeasonOptions{ID: &seasonID})
}

func showSlug(ctx context.Context, db bun.IDB, showID int) (string, error) {
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

package studios

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/externalids"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

type RetrieveStudioOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListStudiosOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateStudioOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateStudio inserts a studio. An empty slug is derived from the name.
func (svc *Service) CreateStudio(ctx context.Context, studio *models.Studio) error {
	now := time.Now()
	if studio.CreatedAt.IsZero() {
		studio.CreatedAt = now
	}
	studio.UpdatedAt = studio.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		slug, err := database.WriteSlug(ctx, tx, "Studio", "studios.slug", studio.Slug, slugs.Base(studio.Name), nil, func(ctx context.Context, tx bun.IDB, slug string) error {
			studio.Slug = slug
			_, err := tx.NewInsert().Model(studio).Returning("*").Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}
		studio.Slug = slug

		return externalids.Save(ctx, tx, models.ResourceStudio, studio.ID, studio.ExternalID)
	})
}

func (svc *Service) RetrieveStudio(ctx context.Context, opts RetrieveStudioOptions) (*models.Studio, error) {
	studio := &models.Studio{}

	q := svc.db.
		NewSelect().
		Model(studio)

	if opts.ID != nil {
		q = q.Where("st.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("st.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(st.name) = LOWER(?)", *opts.Name)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Studio")
		}
		return nil, errors.WithStack(err)
	}

	studio.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourceStudio, studio.ID)
	if err != nil {
		return nil, err
	}

	return studio, nil
}

// FindOrCreateStudio returns the studio with the given name (case-insensitive),
// creating it when there is none. External ids are added to an existing studio.
func (svc *Service) FindOrCreateStudio(ctx context.Context, name string, ids map[string]models.ExternalID) (*models.Studio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("studio name cannot be empty")
	}

	studio, err := svc.RetrieveStudio(ctx, RetrieveStudioOptions{Name: &name})
	if err == nil {
		if err := externalids.Save(ctx, svc.db, models.ResourceStudio, studio.ID, ids); err != nil {
			return nil, err
		}
		studio.ExternalID = models.MergeExternalIDs(studio.ExternalID, ids)
		return studio, nil
	}
	if !errors.Is(err, errcodes.NotFound("Studio")) {
		return nil, err
	}

	studio = &models.Studio{Name: name, ExternalID: ids}
	err = svc.CreateStudio(ctx, studio)
	if err != nil {
		return nil, err
	}
	return studio, nil
}

func (svc *Service) ListStudios(ctx context.Context, opts ListStudiosOptions) ([]*models.Studio, error) {
	s, _, err := svc.listStudiosWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListStudiosWithTotal(ctx context.Context, opts ListStudiosOptions) ([]*models.Studio, int, error) {
	opts.includeTotal = true
	return svc.listStudiosWithTotal(ctx, opts)
}

func (svc *Service) listStudiosWithTotal(ctx context.Context, opts ListStudiosOptions) ([]*models.Studio, int, error) {
	studios := []*models.Studio{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&studios).
		Order("st.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(st.name) LIKE LOWER(?)", "%"+*opts.Search+"%")
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

	return studios, total, nil
}

// UpdateStudio writes the listed columns. "external_id" adds the studio's external
// ids instead of writing a column.
func (svc *Service) UpdateStudio(ctx context.Context, studio *models.Studio, opts UpdateStudioOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, saveIDs := splitExternalID(opts.Columns)
	studio.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(studio).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "studios.slug") {
				return errcodes.DuplicateSlug("Studio", studio.Slug)
			}
			return errors.WithStack(err)
		}
		if saveIDs {
			return externalids.Save(ctx, tx, models.ResourceStudio, studio.ID, studio.ExternalID)
		}
		return nil
	})
}

func (svc *Service) DeleteStudio(ctx context.Context, studioID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Studio)(nil)).
			Where("id = ?", studioID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return externalids.Delete(ctx, tx, models.ResourceStudio, []int{studioID})
	})
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

package collections

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

type RetrieveCollectionOptions struct {
	ID        *int
	Slug      *string
	Name      *string
	WithShows bool
}

type ListCollectionsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateCollectionOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// CreateCollection inserts a collection. An empty slug is derived from the name.
func (svc *Service) CreateCollection(ctx context.Context, collection *models.Collection) error {
	now := time.Now()
	if collection.CreatedAt.IsZero() {
		collection.CreatedAt = now
	}
	collection.UpdatedAt = collection.CreatedAt

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		slug, err := database.WriteSlug(ctx, tx, "Collection", "collections.slug", collection.Slug, slugs.Base(collection.Name), nil, func(ctx context.Context, tx bun.IDB, slug string) error {
			collection.Slug = slug
			_, err := tx.NewInsert().Model(collection).Returning("*").Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}
		collection.Slug = slug

		return externalids.Save(ctx, tx, models.ResourceCollection, collection.ID, collection.ExternalID)
	})
}

func (svc *Service) RetrieveCollection(ctx context.Context, opts RetrieveCollectionOptions) (*models.Collection, error) {
	collection := &models.Collection{}

	q := svc.db.
		NewSelect().
		Model(collection)

	if opts.WithShows {
		q = q.Relation("Shows", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("sh.start_air ASC", "sh.sort_name ASC")
		})
	}

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("c.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(c.name) = LOWER(?)", *opts.Name)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Collection")
		}
		return nil, errors.WithStack(err)
	}

	collection.ExternalID, err = externalids.LoadOne(ctx, svc.db, models.ResourceCollection, collection.ID)
	if err != nil {
		return nil, err
	}

	return collection, nil
}

// FindOrCreateCollection returns the collection with the given name (case-insensitive),
// creating it when there is none. External ids are added to an existing collection.
// Ingestion uses it for the collection directory a show was found under.
func (svc *Service) FindOrCreateCollection(ctx context.Context, name string, ids map[string]models.ExternalID) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	collection, err := svc.RetrieveCollection(ctx, RetrieveCollectionOptions{Name: &name})
	if err == nil {
		if err := externalids.Save(ctx, svc.db, models.ResourceCollection, collection.ID, ids); err != nil {
			return nil, err
		}
		collection.ExternalID = models.MergeExternalIDs(collection.ExternalID, ids)
		return collection, nil
	}
	if !errors.Is(err, errcodes.NotFound("Collection")) {
		return nil, err
	}

	collection = &models.Collection{Name: name, ExternalID: ids}
	err = svc.CreateCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	return collection, nil
}

func (svc *Service) ListCollections(ctx context.Context, opts ListCollectionsOptions) ([]*models.Collection, error) {
	s, _, err := svc.listCollectionsWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListCollectionsWithTotal(ctx context.Context, opts ListCollectionsOptions) ([]*models.Collection, int, error) {
	opts.includeTotal = true
	return svc.listCollectionsWithTotal(ctx, opts)
}

func (svc *Service) listCollectionsWithTotal(ctx context.Context, opts ListCollectionsOptions) ([]*models.Collection, int, error) {
	collections := []*models.Collection{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&collections).
		Order("c.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(c.name) LIKE LOWER(?)", "%"+*opts.Search+"%")
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

	return collections, total, nil
}

// UpdateCollection writes the listed columns. "external_id" adds the collection's external
// ids instead of writing a column.
func (svc *Service) UpdateCollection(ctx context.Context, collection *models.Collection, opts UpdateCollectionOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	columns, saveIDs := splitExternalID(opts.Columns)
	collection.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.
			NewUpdate().
			Model(collection).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err, "collections.slug") {
				return errcodes.DuplicateSlug("Collection", collection.Slug)
			}
			return errors.WithStack(err)
		}
		if saveIDs {
			return externalids.Save(ctx, tx, models.ResourceCollection, collection.ID, collection.ExternalID)
		}
		return nil
	})
}

func (svc *Service) DeleteCollection(ctx context.Context, collectionID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Collection)(nil)).
			Where("id = ?", collectionID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return externalids.Delete(ctx, tx, models.ResourceCollection, []int{collectionID})
	})
}

// AddShow links a show to a collection.
func (svc *Service) AddShow(ctx context.Context, collectionID, showID int) error {
	_, err := svc.db.
		NewUpdate().
		Model((*models.Show)(nil)).
		Set("collection_id = ?", collectionID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", showID).
		Exec(ctx)
	return errors.WithStack(err)
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

package providers

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveProviderOptions struct {
	ID   *int
	Slug *string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveProvider(ctx context.Context, opts RetrieveProviderOptions) (*models.Provider, error) {
	provider := &models.Provider{}

	q := svc.db.
		NewSelect().
		Model(provider)

	if opts.ID != nil {
		q = q.Where("pr.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("pr.slug = ?", *opts.Slug)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Provider")
		}
		return nil, errors.WithStack(err)
	}

	return provider, nil
}

func (svc *Service) ListProviders(ctx context.Context) ([]*models.Provider, error) {
	providers := []*models.Provider{}

	err := svc.db.
		NewSelect().
		Model(&providers).
		Order("pr.slug ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return providers, nil
}

// FindOrCreateProvider returns the provider row for slug, creating it with the given
// name the first time the provider is seen.
func (svc *Service) FindOrCreateProvider(ctx context.Context, slug, name string) (*models.Provider, error) {
	provider, err := svc.RetrieveProvider(ctx, RetrieveProviderOptions{Slug: &slug})
	if err == nil {
		return provider, nil
	}
	if !errors.Is(err, errcodes.NotFound("Provider")) {
		return nil, err
	}

	if name == "" {
		name = slug
	}
	now := time.Now()
	provider = &models.Provider{
		CreatedAt: now,
		UpdatedAt: now,
		Slug:      slug,
		Name:      name,
	}
	_, err = svc.db.
		NewInsert().
		Model(provider).
		Returning("*").
		Exec(ctx)
	if err != nil {
		// Another writer registered the same provider first.
		if database.IsUniqueViolation(err, "providers.slug") {
			return svc.RetrieveProvider(ctx, RetrieveProviderOptions{Slug: &slug})
		}
		return nil, errors.WithStack(err)
	}

	return provider, nil
}

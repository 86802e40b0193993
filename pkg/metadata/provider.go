// Package metadata resolves catalog resources against external metadata providers
// and folds their answers into a single record.
package metadata

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

// ErrUnsupported is returned by a provider for a resource kind it does not handle.
// The engine skips the provider without counting it as a failure.
var ErrUnsupported = errors.New("resource kind not supported by provider")

// Provider is one external metadata source. Get methods receive the seed being
// resolved and return the provider's view of it, or nil when the provider has no
// match. Seeds must not be modified.
type Provider interface {
	Slug() string

	GetShow(ctx context.Context, seed *models.Show) (*models.Show, error)
	// GetSeason receives a seed whose Show is set.
	GetSeason(ctx context.Context, seed *models.Season) (*models.Season, error)
	// GetEntry receives a seed whose Show is set.
	GetEntry(ctx context.Context, seed *models.Entry) (*models.Entry, error)
	GetCollection(ctx context.Context, seed *models.Collection) (*models.Collection, error)
	GetPeople(ctx context.Context, seed *models.Person) (*models.Person, error)

	SearchShows(ctx context.Context, query string) ([]*models.Show, error)
	SearchCollections(ctx context.Context, query string) ([]*models.Collection, error)
	SearchPeople(ctx context.Context, query string) ([]*models.Person, error)
}

// Unsupported can be embedded by providers that only implement some resource kinds.
type Unsupported struct{}

func (Unsupported) GetShow(context.Context, *models.Show) (*models.Show, error) {
	return nil, ErrUnsupported
}

func (Unsupported) GetSeason(context.Context, *models.Season) (*models.Season, error) {
	return nil, ErrUnsupported
}

func (Unsupported) GetEntry(context.Context, *models.Entry) (*models.Entry, error) {
	return nil, ErrUnsupported
}

func (Unsupported) GetCollection(context.Context, *models.Collection) (*models.Collection, error) {
	return nil, ErrUnsupported
}

func (Unsupported) GetPeople(context.Context, *models.Person) (*models.Person, error) {
	return nil, ErrUnsupported
}

func (Unsupported) SearchShows(context.Context, string) ([]*models.Show, error) {
	return nil, ErrUnsupported
}

func (Unsupported) SearchCollections(context.Context, string) ([]*models.Collection, error) {
	return nil, ErrUnsupported
}

func (Unsupported) SearchPeople(context.Context, string) ([]*models.Person, error) {
	return nil, ErrUnsupported
}

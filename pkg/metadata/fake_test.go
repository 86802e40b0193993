package metadata

import (
	"context"
	"time"

	"github.com/shishobooks/kino/pkg/models"
)

// fakeProvider answers shows from a fixed value, after an optional delay.
type fakeProvider struct {
	Unsupported
	slug    string
	show    *models.Show
	shows   []*models.Show
	err     error
	delay   time.Duration
	panics  bool
	gotSeed *models.Show
}

func (f *fakeProvider) Slug() string {
	return f.slug
}

func (f *fakeProvider) GetShow(ctx context.Context, seed *models.Show) (*models.Show, error) {
	f.gotSeed = seed
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.show, f.err
}

func (f *fakeProvider) SearchShows(_ context.Context, _ string) ([]*models.Show, error) {
	return f.shows, f.err
}

// stubbornProvider ignores its context.
type stubbornProvider struct {
	Unsupported
	release chan struct{}
}

func (s *stubbornProvider) Slug() string {
	return "stubborn"
}

func (s *stubbornProvider) GetShow(_ context.Context, _ *models.Show) (*models.Show, error) {
	<-s.release
	return &models.Show{Name: "late"}, nil
}

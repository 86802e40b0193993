package metadata

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/models"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 10 * time.Second
)

// EngineOptions bounds the calls the engine makes.
type EngineOptions struct {
	// Concurrency is the number of providers queried at once.
	Concurrency int
	// Timeout bounds every single provider call.
	Timeout time.Duration
}

// ResolveOptions tunes one resolve.
type ResolveOptions struct {
	// Providers is the library's provider order. Empty means the registry default.
	Providers []string
	// ForceRefresh names the seed fields providers may repopulate. The seed keeps such
	// a field only when no provider supplies it.
	ForceRefresh []string
}

// Engine queries every provider for a resource and merges their answers.
type Engine struct {
	registry    *Registry
	concurrency int
	timeout     time.Duration
}

func NewEngine(registry *Registry, opts EngineOptions) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Engine{
		registry:    registry,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
	}
}

// Registry returns the registry the engine queries.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// ResolveShow merges the providers' view of a show into a copy of seed. The result is
// never nil.
func (e *Engine) ResolveShow(ctx context.Context, seed *models.Show, opts ResolveOptions) (*models.Show, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceShow, func(ctx context.Context, p Provider) (*models.Show, error) {
		return p.GetShow(ctx, cloneShow(seed))
	})
	return fold(seed, found, opts.ForceRefresh, showFields, cloneShow), report
}

// ResolveSeason merges the providers' view of a season into a copy of seed. The seed's
// Show must be set.
func (e *Engine) ResolveSeason(ctx context.Context, seed *models.Season, opts ResolveOptions) (*models.Season, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceSeason, func(ctx context.Context, p Provider) (*models.Season, error) {
		return p.GetSeason(ctx, cloneSeason(seed))
	})
	return fold(seed, found, opts.ForceRefresh, seasonFields, cloneSeason), report
}

// ResolveEntry merges the providers' view of an entry into a copy of seed. The seed's
// Show must be set.
func (e *Engine) ResolveEntry(ctx context.Context, seed *models.Entry, opts ResolveOptions) (*models.Entry, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceEntry, func(ctx context.Context, p Provider) (*models.Entry, error) {
		return p.GetEntry(ctx, cloneEntry(seed))
	})
	return fold(seed, found, opts.ForceRefresh, entryFields, cloneEntry), report
}

func (e *Engine) ResolveCollection(ctx context.Context, seed *models.Collection, opts ResolveOptions) (*models.Collection, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceCollection, func(ctx context.Context, p Provider) (*models.Collection, error) {
		return p.GetCollection(ctx, cloneCollection(seed))
	})
	return fold(seed, found, opts.ForceRefresh, collectionFields, cloneCollection), report
}

func (e *Engine) ResolvePeople(ctx context.Context, seed *models.Person, opts ResolveOptions) (*models.Person, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourcePerson, func(ctx context.Context, p Provider) (*models.Person, error) {
		return p.GetPeople(ctx, clonePerson(seed))
	})
	return fold(seed, found, opts.ForceRefresh, personFields, clonePerson), report
}

// SearchShows concatenates the results of every provider in priority order. Results
// are not merged.
func (e *Engine) SearchShows(ctx context.Context, query string, opts ResolveOptions) ([]*models.Show, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceShow, func(ctx context.Context, p Provider) ([]*models.Show, error) {
		return p.SearchShows(ctx, query)
	})
	return concat(found), report
}

func (e *Engine) SearchCollections(ctx context.Context, query string, opts ResolveOptions) ([]*models.Collection, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourceCollection, func(ctx context.Context, p Provider) ([]*models.Collection, error) {
		return p.SearchCollections(ctx, query)
	})
	return concat(found), report
}

func (e *Engine) SearchPeople(ctx context.Context, query string, opts ResolveOptions) ([]*models.Person, *Report) {
	found, report := fanOut(ctx, e, e.registry.Ordered(opts.Providers), models.ResourcePerson, func(ctx context.Context, p Provider) ([]*models.Person, error) {
		return p.SearchPeople(ctx, query)
	})
	return concat(found), report
}

// fanOut calls every provider concurrently and returns their answers in provider
// order. Failed and skipped providers leave a zero value in their slot.
func fanOut[T any](ctx context.Context, e *Engine, providers []Provider, kind string, call func(context.Context, Provider) (T, error)) ([]T, *Report) {
	log := logger.FromContext(ctx)
	values := make([]T, len(providers))
	report := &Report{Kind: kind, Results: make([]Result, len(providers))}

	g := &errgroup.Group{}
	g.SetLimit(e.concurrency)
	for i, p := range providers {
		g.Go(func() error {
			start := time.Now()
			value, err := callWithTimeout(ctx, e.timeout, p, call)
			result := Result{Provider: p.Slug(), Duration: time.Since(start)}

			switch {
			case errors.Is(err, ErrUnsupported):
				result.Outcome = OutcomeSkipped
			case err != nil:
				result.Outcome = OutcomeFailed
				result.Err = err
				log.Err(err).Warn("metadata provider failed", logger.Data{
					"provider": p.Slug(),
					"kind":     kind,
				})
			case isNil(value):
				result.Outcome = OutcomeSkipped
			default:
				result.Outcome = OutcomeSuccess
				values[i] = value
			}
			report.Results[i] = result
			return nil
		})
	}
	_ = g.Wait()

	return values, report
}

// callWithTimeout runs one provider call. A provider that ignores its context is
// abandoned once the timeout expires.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, p Provider, call func(context.Context, Provider) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: errors.Errorf("provider %s panicked: %v", p.Slug(), r)}
			}
		}()
		value, err := call(ctx, p)
		done <- outcome{value, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrapf(ctx.Err(), "provider %s", p.Slug())
	}
}

func isNil(v interface{}) bool {
	switch v := v.(type) {
	case *models.Show:
		return v == nil
	case *models.Season:
		return v == nil
	case *models.Entry:
		return v == nil
	case *models.Collection:
		return v == nil
	case *models.Person:
		return v == nil
	case []*models.Show:
		return v == nil
	case []*models.Collection:
		return v == nil
	case []*models.Person:
		return v == nil
	}
	return v == nil
}

func concat[T any](lists [][]T) []T {
	out := []T{}
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/config"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/metadata/script"
	"github.com/shishobooks/kino/pkg/metadata/tmdb"
	"github.com/shishobooks/kino/pkg/providers"
	"github.com/uptrace/bun"
)

// newRegistry registers the script providers found in plugin_dir and, when an API key
// is configured, TMDB. Every registered provider gets a row in the providers table.
func newRegistry(ctx context.Context, cfg *config.Config, db *bun.DB) (*metadata.Registry, error) {
	log := logger.FromContext(ctx)
	registry := metadata.NewRegistry(cfg.DefaultProviderOrder)
	providerService := providers.NewService(db)

	register := func(p metadata.Provider, name string) error {
		err := registry.Register(p)
		if err != nil {
			return err
		}
		_, err = providerService.FindOrCreateProvider(ctx, p.Slug(), name)
		return err
	}

	if cfg.TmdbAPIKey != "" {
		p, err := tmdb.New(tmdb.Config{
			APIKey:   cfg.TmdbAPIKey,
			BaseURL:  cfg.TmdbBaseURL,
			Language: cfg.TmdbLanguage,
		})
		if err != nil {
			return nil, err
		}
		if err := register(p, "The Movie Database"); err != nil {
			return nil, err
		}
	} else {
		log.Info("tmdb disabled, no api key configured")
	}

	scripts, err := script.LoadDir(ctx, cfg.PluginDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load script providers from %s", cfg.PluginDir)
	}
	for _, p := range scripts {
		if err := register(p, p.Manifest().Name); err != nil {
			log.Err(err).Warn("skipping script provider", logger.Data{"provider": p.Slug()})
		}
	}

	return registry, nil
}

package main

import (
	"context"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/shishobooks/kino/pkg/config"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/ingest"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/migrations"
	"github.com/shishobooks/kino/pkg/server"
	"github.com/shishobooks/kino/pkg/version"
	"github.com/shishobooks/kino/pkg/worker"
)

func main() {
	log := logger.New()
	ctx := log.WithContext(context.Background())

	log.Info("starting kino", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	// Check that FTS5 is available before running migrations
	err = database.CheckFTS5Support(db)
	if err != nil {
		log.Err(err).Fatal("FTS5 check failed")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	registry, err := newRegistry(ctx, cfg, db)
	if err != nil {
		log.Err(err).Fatal("metadata provider error")
	}
	log.Info("metadata providers registered", logger.Data{"providers": registry.Slugs()})

	engine := metadata.NewEngine(registry, metadata.EngineOptions{
		Concurrency: cfg.ProviderConcurrency,
		Timeout:     cfg.ProviderTimeout,
	})

	id, err := identifier.New(identifier.Patterns{
		Primary:  cfg.IdentifierPatterns,
		Absolute: cfg.IdentifierAbsolutePatterns,
		Movie:    cfg.IdentifierMoviePatterns,
		Subtitle: cfg.IdentifierSubtitlePatterns,
	})
	if err != nil {
		log.Err(err).Fatal("identifier patterns error")
	}

	wrkr := worker.New(cfg, db, ingest.New(db, id, engine), engine)

	srv, err := server.New(cfg, db, engine, id)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", srv.Addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}
		log.Info("server started", logger.Data{"addr": listener.Addr().String()})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	err = wrkr.Start()
	if err != nil {
		log.Err(err).Fatal("worker error")
	}
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

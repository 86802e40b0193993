package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/shishobooks/kino/pkg/binder"
	"github.com/shishobooks/kino/pkg/collections"
	"github.com/shishobooks/kino/pkg/config"
	"github.com/shishobooks/kino/pkg/entries"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/joblogs"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/people"
	"github.com/shishobooks/kino/pkg/providers"
	"github.com/shishobooks/kino/pkg/search"
	"github.com/shishobooks/kino/pkg/seasons"
	"github.com/shishobooks/kino/pkg/shows"
	"github.com/shishobooks/kino/pkg/studios"
	"github.com/shishobooks/kino/pkg/tracks"
	"github.com/shishobooks/kino/pkg/videos"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, engine *metadata.Engine, id *identifier.Identifier) (*http.Server, error) {
	e, err := newEcho(cfg, db, engine, id)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, engine *metadata.Engine, id *identifier.Identifier) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	// Catalog
	shows.RegisterRoutes(e, db)
	seasons.RegisterRoutes(e, db)
	entries.RegisterRoutes(e, db)
	tracks.RegisterRoutes(e, db)
	collections.RegisterRoutes(e, db)
	studios.RegisterRoutes(e, db)
	people.RegisterRoutes(e, db)
	search.RegisterRoutes(e, db)

	// Matching and metadata
	videos.RegisterRoutes(e, db)
	identifier.RegisterRoutes(e, db, id)
	providers.RegisterRoutes(e, db)
	metadata.RegisterRoutes(e, db, engine)

	// Libraries and background work
	libraries.RegisterRoutes(e, db)
	jobs.RegisterRoutes(e, db)
	joblogs.RegisterRoutes(e, db)

	config.RegisterRoutes(e, cfg)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}

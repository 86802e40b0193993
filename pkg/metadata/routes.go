package metadata

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, engine *Engine) {
	h := &handler{
		engine:         engine,
		libraryService: libraries.NewService(db),
	}

	g := e.Group("/metadata")
	g.GET("/providers", h.providers)
	g.GET("/search/shows", h.searchShows)
	g.GET("/search/collections", h.searchCollections)
	g.GET("/search/people", h.searchPeople)
}

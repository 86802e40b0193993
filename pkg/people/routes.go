package people

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		personService: NewService(db),
	}

	g := e.Group("/people")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/shows", h.shows)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

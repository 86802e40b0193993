package shows

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		showService: NewService(db),
		jobService:  jobs.NewService(db),
	}

	g := e.Group("/shows")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/refresh", h.refresh)
}

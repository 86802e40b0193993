package videos

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		videoService: NewService(db),
	}

	g := e.Group("/videos")
	g.POST("", h.register)
	g.DELETE("", h.delete)
	g.POST("/link", h.link)
	g.GET("/guesses", h.guesses)
	g.GET("/unmatched", h.unmatched)
	g.GET("/:id", h.retrieve)
}

package providers

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB) {
	h := &handler{
		providerService: NewService(db),
	}

	e.GET("/providers", h.list)
}

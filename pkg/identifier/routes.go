package identifier

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, id *Identifier) {
	h := &handler{
		identifier:     id,
		libraryService: libraries.NewService(db),
	}

	e.GET("/identify", h.identify)
}

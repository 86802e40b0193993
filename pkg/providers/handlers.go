package providers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	providerService *Service
}

func (h *handler) list(c echo.Context) error {
	providers, err := h.providerService.ListProviders(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, providers))
}

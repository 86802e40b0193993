package studios

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	studioService *Service
}

func (h *handler) lookup(c echo.Context) (*models.Studio, error) {
	opts := RetrieveStudioOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.studioService.RetrieveStudio(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	studio, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, studio))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListStudiosQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	studios, total, err := h.studioService.ListStudiosWithTotal(ctx, ListStudiosOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Studios []*models.Studio `json:"studios"`
		Total   int              `json:"total"`
	}{studios, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateStudioPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	studio := &models.Studio{
		Name:       params.Name,
		Slug:       params.Slug,
		ExternalID: params.ExternalID,
	}
	err := h.studioService.CreateStudio(ctx, studio)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, studio))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateStudioPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	studio, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateStudioOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != studio.Name {
		studio.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Slug != nil && *params.Slug != studio.Slug {
		studio.Slug = *params.Slug
		opts.Columns = append(opts.Columns, "slug")
	}
	if len(params.ExternalID) > 0 {
		studio.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, "external_id")
	}

	err = h.studioService.UpdateStudio(ctx, studio, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	studio, err = h.studioService.RetrieveStudio(ctx, RetrieveStudioOptions{ID: &studio.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, studio))
}

func (h *handler) delete(c echo.Context) error {
	studio, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.studioService.DeleteStudio(c.Request().Context(), studio.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

package seasons

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	seasonService *Service
}

func (h *handler) lookup(c echo.Context) (*models.Season, error) {
	opts := RetrieveSeasonOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.seasonService.RetrieveSeason(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	season, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, season))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSeasonsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	seasons, total, err := h.seasonService.ListSeasonsWithTotal(ctx, ListSeasonsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		ShowID: params.ShowID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Seasons []*models.Season `json:"seasons"`
		Total   int              `json:"total"`
	}{seasons, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateSeasonPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	season := &models.Season{
		ShowID:       params.ShowID,
		SeasonNumber: params.SeasonNumber,
		Name:         params.Name,
		Overview:     params.Overview,
		StartAir:     params.StartAir,
		EndAir:       params.EndAir,
		ExternalID:   params.ExternalID,
	}
	err := h.seasonService.CreateSeason(ctx, season)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, season))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateSeasonPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	season, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateSeasonOptions{Columns: []string{}}
	if params.SeasonNumber != nil && *params.SeasonNumber != season.SeasonNumber {
		season.SeasonNumber = *params.SeasonNumber
		opts.Columns = append(opts.Columns, "season_number")
	}
	if params.Name != nil {
		season.Name = params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Overview != nil {
		season.Overview = params.Overview
		opts.Columns = append(opts.Columns, "overview")
	}
	if params.StartAir != nil {
		season.StartAir = params.StartAir
		opts.Columns = append(opts.Columns, "start_air")
	}
	if params.EndAir != nil {
		season.EndAir = params.EndAir
		opts.Columns = append(opts.Columns, "end_air")
	}
	if len(params.ExternalID) > 0 {
		season.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, "external_id")
	}

	err = h.seasonService.UpdateSeason(ctx, season, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	season, err = h.seasonService.RetrieveSeason(ctx, RetrieveSeasonOptions{ID: &season.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, season))
}

func (h *handler) delete(c echo.Context) error {
	season, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.seasonService.DeleteSeason(c.Request().Context(), season.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

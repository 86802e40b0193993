package shows

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	showService *Service
	jobService  *jobs.Service
}

func (h *handler) lookup(c echo.Context, withCast bool) (*models.Show, error) {
	opts := RetrieveShowOptions{WithCast: withCast}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.showService.RetrieveShow(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	show, err := h.lookup(c, true)
	if err != nil {
		return errors.WithStack(err)
	}

	show.Seasons, err = h.showService.LoadSeasons(c.Request().Context(), show.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, show))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListShowsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	shows, total, err := h.showService.ListShowsWithTotal(ctx, ListShowsOptions{
		Limit:        &params.Limit,
		Offset:       &params.Offset,
		LibraryID:    params.LibraryID,
		Kind:         params.Kind,
		CollectionID: params.CollectionID,
		StudioID:     params.StudioID,
		Search:       params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Shows []*models.Show `json:"shows"`
		Total int            `json:"total"`
	}{shows, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateShowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	show := &models.Show{
		Kind:       params.Kind,
		Name:       params.Name,
		Slug:       params.Slug,
		LibraryID:  params.LibraryID,
		SortName:   params.SortName,
		Aliases:    params.Aliases,
		Overview:   params.Overview,
		Genres:     params.Genres,
		Status:     params.Status,
		StartAir:   params.StartAir,
		EndAir:     params.EndAir,
		ExternalID: params.ExternalID,
	}
	if params.Studio != nil {
		show.Studio = &models.Studio{Name: *params.Studio}
	}
	if params.Collection != nil {
		show.Collection = &models.Collection{Name: *params.Collection}
	}

	err := h.showService.CreateShow(ctx, show)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, show))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateShowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	show, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateShowOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != show.Name {
		show.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Slug != nil && *params.Slug != show.Slug {
		show.Slug = *params.Slug
		opts.Columns = append(opts.Columns, "slug")
	}
	if params.SortName != nil && *params.SortName != show.SortName {
		show.SortName = *params.SortName
		opts.Columns = append(opts.Columns, "sort_name")
	}
	if params.Aliases != nil {
		show.Aliases = params.Aliases
		opts.Columns = append(opts.Columns, "aliases")
	}
	if params.Overview != nil {
		show.Overview = params.Overview
		opts.Columns = append(opts.Columns, "overview")
	}
	if params.Genres != nil {
		show.Genres = params.Genres
		opts.Columns = append(opts.Columns, "genres")
	}
	if params.Status != nil && *params.Status != show.Status {
		show.Status = *params.Status
		opts.Columns = append(opts.Columns, "status")
	}
	if params.StartAir != nil {
		show.StartAir = params.StartAir
		opts.Columns = append(opts.Columns, "start_air")
	}
	if params.EndAir != nil {
		show.EndAir = params.EndAir
		opts.Columns = append(opts.Columns, "end_air")
	}
	if params.Studio != nil {
		show.Studio = &models.Studio{Name: *params.Studio}
		opts.Columns = append(opts.Columns, ColumnStudio)
	}
	if params.Collection != nil {
		show.Collection = &models.Collection{Name: *params.Collection}
		opts.Columns = append(opts.Columns, ColumnCollection)
	}
	if len(params.ExternalID) > 0 {
		show.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, ColumnExternalID)
	}

	err = h.showService.UpdateShow(ctx, show, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	show, err = h.showService.RetrieveShow(ctx, RetrieveShowOptions{ID: &show.ID, WithCast: true})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, show))
}

func (h *handler) delete(c echo.Context) error {
	show, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.showService.DeleteShow(c.Request().Context(), show.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// refresh queues a job that runs the show through the metadata providers again.
func (h *handler) refresh(c echo.Context) error {
	ctx := c.Request().Context()

	show, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	job := &models.Job{
		Type:       models.JobTypeRefresh,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobRefreshData{ShowID: show.ID},
		LibraryID:  show.LibraryID,
	}
	err = h.jobService.CreateJob(ctx, job)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, job))
}

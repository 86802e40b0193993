package entries

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	entryService *Service
}

func (h *handler) lookup(c echo.Context, withRelations bool) (*models.Entry, error) {
	opts := RetrieveEntryOptions{WithVideos: withRelations, WithTracks: withRelations}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.entryService.RetrieveEntry(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	entry, err := h.lookup(c, true)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, entry))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListEntriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entries, total, err := h.entryService.ListEntriesWithTotal(ctx, ListEntriesOptions{
		Limit:        &params.Limit,
		Offset:       &params.Offset,
		ShowID:       params.ShowID,
		SeasonNumber: params.SeasonNumber,
		Kind:         params.Kind,
		Available:    params.Available,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Entries []*models.Entry `json:"entries"`
		Total   int             `json:"total"`
	}{entries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateEntryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entry := &models.Entry{
		Kind:           params.Kind,
		ShowID:         params.ShowID,
		Slug:           params.Slug,
		Name:           params.Name,
		Overview:       params.Overview,
		SeasonNumber:   params.SeasonNumber,
		EpisodeNumber:  params.EpisodeNumber,
		AbsoluteNumber: params.AbsoluteNumber,
		Order:          params.Order,
		ExtraKind:      params.ExtraKind,
		AirDate:        params.AirDate,
		Runtime:        params.Runtime,
		ExternalID:     params.ExternalID,
	}
	err := h.entryService.CreateEntry(ctx, entry)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, entry))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateEntryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	entry, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateEntryOptions{Columns: []string{}}
	if params.Kind != nil && *params.Kind != entry.Kind {
		entry.Kind = *params.Kind
		opts.Columns = append(opts.Columns, "kind")
	}
	if params.ShowID != nil {
		entry.ShowID = params.ShowID
		opts.Columns = append(opts.Columns, "show_id")
	}
	if params.Name != nil {
		entry.Name = params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Overview != nil {
		entry.Overview = params.Overview
		opts.Columns = append(opts.Columns, "overview")
	}
	if params.Numbering != nil {
		entry.SeasonNumber = params.Numbering.SeasonNumber
		entry.EpisodeNumber = params.Numbering.EpisodeNumber
		entry.AbsoluteNumber = params.Numbering.AbsoluteNumber
		entry.Order = params.Numbering.Order
		opts.Columns = append(opts.Columns, "season_number", "episode_number", "absolute_number", "episode_order")
	}
	if params.ExtraKind != nil {
		entry.ExtraKind = params.ExtraKind
		opts.Columns = append(opts.Columns, "extra_kind")
	}
	if params.AirDate != nil {
		entry.AirDate = params.AirDate
		opts.Columns = append(opts.Columns, "air_date")
	}
	if params.Runtime != nil {
		entry.Runtime = params.Runtime
		opts.Columns = append(opts.Columns, "runtime")
	}
	if len(params.ExternalID) > 0 {
		entry.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, "external_id")
	}

	err = h.entryService.UpdateEntry(ctx, entry, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	entry, err = h.entryService.RetrieveEntry(ctx, RetrieveEntryOptions{ID: &entry.ID, WithVideos: true, WithTracks: true})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, entry))
}

func (h *handler) delete(c echo.Context) error {
	entry, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.entryService.DeleteEntry(c.Request().Context(), entry.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) videos(c echo.Context) error {
	entry, err := h.lookup(c, false)
	if err != nil {
		return errors.WithStack(err)
	}

	joins, err := h.entryService.LoadVideos(c.Request().Context(), entry.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, joins))
}

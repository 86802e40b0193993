package tracks

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	trackService *Service
}

func (h *handler) lookup(c echo.Context) (*models.Track, error) {
	opts := RetrieveTrackOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.trackService.RetrieveTrack(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	track, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, track))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListTracksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tracks, total, err := h.trackService.ListTracksWithTotal(ctx, ListTracksOptions{
		Limit:   &params.Limit,
		Offset:  &params.Offset,
		EntryID: params.EntryID,
		Type:    params.Type,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Tracks []*models.Track `json:"tracks"`
		Total  int             `json:"total"`
	}{tracks, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateTrackPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	track := &models.Track{
		EntryID:    params.EntryID,
		Type:       params.Type,
		Language:   params.Language,
		Codec:      params.Codec,
		Title:      params.Title,
		IsDefault:  params.IsDefault,
		IsForced:   params.IsForced,
		IsExternal: params.IsExternal,
		Path:       params.Path,
	}
	err := h.trackService.CreateTrack(ctx, track)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, track))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateTrackPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	track, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateTrackOptions{Columns: []string{}}
	if params.EntryID != nil && *params.EntryID != track.EntryID {
		track.EntryID = *params.EntryID
		opts.Columns = append(opts.Columns, "entry_id")
	}
	if params.Type != nil && *params.Type != track.Type {
		track.Type = *params.Type
		opts.Columns = append(opts.Columns, "type")
	}
	if params.Language != nil {
		track.Language = params.Language
		opts.Columns = append(opts.Columns, "language")
	}
	if params.Codec != nil {
		track.Codec = *params.Codec
		opts.Columns = append(opts.Columns, "codec")
	}
	if params.Title != nil {
		track.Title = params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.IsDefault != nil {
		track.IsDefault = *params.IsDefault
		opts.Columns = append(opts.Columns, "is_default")
	}
	if params.IsForced != nil && *params.IsForced != track.IsForced {
		track.IsForced = *params.IsForced
		opts.Columns = append(opts.Columns, "is_forced")
	}
	if params.TrackIndex != nil && *params.TrackIndex != track.TrackIndex {
		track.TrackIndex = *params.TrackIndex
		opts.Columns = append(opts.Columns, "track_index")
	}

	err = h.trackService.UpdateTrack(ctx, track, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, track))
}

func (h *handler) delete(c echo.Context) error {
	track, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.trackService.DeleteTrack(c.Request().Context(), track.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

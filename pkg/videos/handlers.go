package videos

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	videoService *Service
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if len(params.Videos) == 0 {
		return errcodes.ValidationError("No videos")
	}

	seeds := make([]SeedVideo, 0, len(params.Videos))
	for _, v := range params.Videos {
		seeds = append(seeds, SeedVideo(v))
	}

	result, err := h.videoService.Register(ctx, seeds)
	if err != nil {
		return errors.WithStack(err)
	}
	if len(result.Conflicts) > 0 {
		// The rest of the batch is committed and returned alongside the conflicts.
		return errcodes.WithData(errcodes.ConflictingRendering(result.Conflicts...), result.Videos)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, result.Videos))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	params := DeletePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	removed, err := h.videoService.Delete(ctx, params.Paths)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, removed))
}

func (h *handler) link(c echo.Context) error {
	ctx := c.Request().Context()

	params := LinkPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	requests := make([]LinkRequest, 0, len(params.Links))
	for _, l := range params.Links {
		requests = append(requests, LinkRequest{VideoID: l.ID, For: l.For})
	}

	linked, err := h.videoService.Link(ctx, requests)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, linked))
}

func (h *handler) retrieve(c echo.Context) error {
	opts := RetrieveVideoOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}

	video, err := h.videoService.RetrieveVideo(c.Request().Context(), opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, video))
}

func (h *handler) guesses(c echo.Context) error {
	summary, err := h.videoService.Guesses(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, summary))
}

func (h *handler) unmatched(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUnmatchedQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	videos, total, err := h.videoService.ListUnmatchedWithTotal(ctx, ListUnmatchedOptions{
		Search: params.Search,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Videos []*models.Video `json:"videos"`
		Total  int             `json:"total"`
	}{videos, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

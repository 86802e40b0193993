package libraries

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	libraryService *Service
	jobService     *jobs.Service
}

func (h *handler) lookup(c echo.Context) (*models.Library, error) {
	opts := RetrieveLibraryOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.libraryService.RetrieveLibrary(c.Request().Context(), opts)
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name:         params.Name,
		Slug:         params.Slug,
		LibraryPaths: toPaths(params.LibraryPaths),
		Providers:    toProviders(params.Providers),
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	// A failed scan job does not fail the creation. The scheduler queues one later.
	err = h.queueScan(c, library.ID)
	if err != nil {
		log.Err(err).Error("failed to create scan job after library creation", logger.Data{"library_id": library.ID})
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &library.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, library))
}

func (h *handler) retrieve(c echo.Context) error {
	library, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLibraryOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Slug != nil && *params.Slug != library.Slug {
		library.Slug = *params.Slug
		opts.Columns = append(opts.Columns, "slug")
	}
	if params.LibraryPaths != nil {
		library.LibraryPaths = toPaths(params.LibraryPaths)
		opts.UpdateLibraryPaths = true
	}
	if params.Providers != nil {
		library.Providers = toProviders(params.Providers)
		opts.UpdateProviders = true
	}

	err = h.libraryService.UpdateLibrary(ctx, library, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &library.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) delete(c echo.Context) error {
	library, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.libraryService.DeleteLibrary(c.Request().Context(), library.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) scan(c echo.Context) error {
	library, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.queueScan(c, library.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *handler) queueScan(c echo.Context, libraryID int) error {
	return h.jobService.CreateJob(c.Request().Context(), &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{LibraryID: libraryID},
		LibraryID:  &libraryID,
	})
}

func toPaths(paths []string) []*models.LibraryPath {
	out := make([]*models.LibraryPath, 0, len(paths))
	for _, path := range paths {
		out = append(out, &models.LibraryPath{Filepath: path})
	}
	return out
}

func toProviders(providers []ProviderPayload) []*models.LibraryProvider {
	out := make([]*models.LibraryProvider, 0, len(providers))
	for _, p := range providers {
		enabled := p.Enabled == nil || *p.Enabled
		out = append(out, &models.LibraryProvider{ProviderSlug: p.Slug, Enabled: enabled})
	}
	return out
}

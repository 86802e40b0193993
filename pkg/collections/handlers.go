package collections

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	collectionService *Service
}

func (h *handler) lookup(c echo.Context) (*models.Collection, error) {
	opts := RetrieveCollectionOptions{WithShows: true}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.collectionService.RetrieveCollection(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	collection, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, collection))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListCollectionsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	collections, total, err := h.collectionService.ListCollectionsWithTotal(ctx, ListCollectionsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Collections []*models.Collection `json:"collections"`
		Total   int              `json:"total"`
	}{collections, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateCollectionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	collection := &models.Collection{
		Name:       params.Name,
		Slug:       params.Slug,
		Overview:   params.Overview,
		ExternalID: params.ExternalID,
	}
	err := h.collectionService.CreateCollection(ctx, collection)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, collection))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateCollectionPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	collection, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateCollectionOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != collection.Name {
		collection.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Slug != nil && *params.Slug != collection.Slug {
		collection.Slug = *params.Slug
		opts.Columns = append(opts.Columns, "slug")
	}
	if params.Overview != nil {
		collection.Overview = params.Overview
		opts.Columns = append(opts.Columns, "overview")
	}
	if len(params.ExternalID) > 0 {
		collection.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, "external_id")
	}

	err = h.collectionService.UpdateCollection(ctx, collection, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	collection, err = h.collectionService.RetrieveCollection(ctx, RetrieveCollectionOptions{ID: &collection.ID, WithShows: true})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, collection))
}

func (h *handler) delete(c echo.Context) error {
	collection, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.collectionService.DeleteCollection(c.Request().Context(), collection.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

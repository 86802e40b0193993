package metadata

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/libraries"
)

type handler struct {
	engine         *Engine
	libraryService *libraries.Service
}

type functionLister interface {
	Functions() []string
}

func (h *handler) providers(c echo.Context) error {
	registry := h.engine.Registry()
	infos := []ProviderInfo{}
	for _, slug := range registry.Slugs() {
		info := ProviderInfo{Slug: slug}
		if p, ok := registry.Get(slug); ok {
			if fl, ok := p.(functionLister); ok {
				info.Functions = fl.Functions()
			}
		}
		infos = append(infos, info)
	}

	return errors.WithStack(c.JSON(http.StatusOK, infos))
}

func (h *handler) options(c echo.Context, params SearchQuery) (ResolveOptions, error) {
	if params.LibraryID == nil {
		return ResolveOptions{}, nil
	}
	library, err := h.libraryService.RetrieveLibrary(c.Request().Context(), libraries.RetrieveLibraryOptions{ID: params.LibraryID})
	if err != nil {
		return ResolveOptions{}, err
	}
	return ResolveOptions{Providers: library.ProviderOrder()}, nil
}

func (h *handler) searchShows(c echo.Context) error {
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	opts, err := h.options(c, params)
	if err != nil {
		return errors.WithStack(err)
	}

	shows, report := h.engine.SearchShows(c.Request().Context(), params.Query, opts)
	resp := searchResponse{Results: shows, Report: report}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) searchCollections(c echo.Context) error {
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	opts, err := h.options(c, params)
	if err != nil {
		return errors.WithStack(err)
	}

	collections, report := h.engine.SearchCollections(c.Request().Context(), params.Query, opts)
	resp := searchResponse{Results: collections, Report: report}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) searchPeople(c echo.Context) error {
	params := SearchQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	opts, err := h.options(c, params)
	if err != nil {
		return errors.WithStack(err)
	}

	people, report := h.engine.SearchPeople(c.Request().Context(), params.Query, opts)
	resp := searchResponse{Results: people, Report: report}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

type searchResponse struct {
	Results interface{} `json:"results"`
	Report  *Report     `json:"report"`
}

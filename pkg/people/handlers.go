package people

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	personService *Service
}

func (h *handler) lookup(c echo.Context) (*models.Person, error) {
	opts := RetrievePersonOptions{}
	param := c.Param("id")
	if id, err := strconv.Atoi(param); err == nil {
		opts.ID = &id
	} else {
		opts.Slug = &param
	}
	return h.personService.RetrievePerson(c.Request().Context(), opts)
}

func (h *handler) retrieve(c echo.Context) error {
	person, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, person))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListPeopleQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	people, total, err := h.personService.ListPeopleWithTotal(ctx, ListPeopleOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		People []*models.Person `json:"people"`
		Total   int              `json:"total"`
	}{people, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreatePersonPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	person := &models.Person{
		Name:       params.Name,
		Slug:       params.Slug,
		ExternalID: params.ExternalID,
	}
	err := h.personService.CreatePerson(ctx, person)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, person))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdatePersonPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	person, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdatePersonOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != person.Name {
		person.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Slug != nil && *params.Slug != person.Slug {
		person.Slug = *params.Slug
		opts.Columns = append(opts.Columns, "slug")
	}
	if len(params.ExternalID) > 0 {
		person.ExternalID = params.ExternalID
		opts.Columns = append(opts.Columns, "external_id")
	}

	err = h.personService.UpdatePerson(ctx, person, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	person, err = h.personService.RetrievePerson(ctx, RetrievePersonOptions{ID: &person.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, person))
}

func (h *handler) delete(c echo.Context) error {
	person, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	err = h.personService.DeletePerson(c.Request().Context(), person.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) shows(c echo.Context) error {
	person, err := h.lookup(c)
	if err != nil {
		return errors.WithStack(err)
	}

	shows, err := h.personService.ListPersonShows(c.Request().Context(), person.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, shows))
}

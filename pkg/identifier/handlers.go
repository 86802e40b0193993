package identifier

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/models"
)

type handler struct {
	identifier     *Identifier
	libraryService *libraries.Service
}

type identifyResponse struct {
	Candidate *Candidate   `json:"candidate"`
	Guess     models.Guess `json:"guess"`
}

// identify runs the identifier over a path without touching the catalog. The path is
// made relative to the roots of the library that contains it.
func (h *handler) identify(c echo.Context) error {
	ctx := c.Request().Context()

	params := IdentifyQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	var roots []string
	library, err := h.libraryService.RetrieveLibraryForPath(ctx, params.Path)
	if err != nil && !errors.Is(err, errcodes.NotFound("Library")) {
		return errors.WithStack(err)
	}
	if library != nil {
		roots = library.Roots()
	}

	cand, err := h.identifier.Identify(params.Path, roots)
	if errors.Is(err, ErrUnidentifiable) {
		return errcodes.UnidentifiableMedia(params.Path)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, identifyResponse{
		Candidate: cand,
		Guess:     cand.Guess(),
	}))
}

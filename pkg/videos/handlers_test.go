package videos

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/kino/pkg/binder"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newServer(t *testing.T, db *bun.DB) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutes(e, db)
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(testutils.Context())
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_Register(t *testing.T) {
	db := testutils.NewDB(t)
	e := newServer(t, db)
	newCatalog(t, db)

	rec := do(e, http.MethodPost, "/videos", `[]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "No videos")

	rec = do(e, http.MethodPost, "/videos", `[{"path":"/lib/bubble.mkv","rendering":"r1","guess":{"title":"Bubble"},"for":[{"movie":"bubble"}]}]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := []RegisteredVideo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Len(t, created, 1)
	assert.Equal(t, []JoinSlug{{Slug: "bubble"}}, created[0].Entries)

	rec = do(e, http.MethodPost, "/videos", `[{"path":"/lib/bubble copy.mkv","rendering":"r1","guess":{"title":"Bubble"}},{"path":"/lib/abyss/e13.mkv","rendering":"r2","guess":{"title":"Made in Abyss"},"for":[{"slug":"made-in-abyss-s1e13"}]}]`)
	require.Equal(t, http.StatusConflict, rec.Code)
	conflict := struct {
		Error struct {
			Code  string   `json:"code"`
			Paths []string `json:"paths"`
		} `json:"error"`
		Data []RegisteredVideo `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, "conflicting_rendering", conflict.Error.Code)
	assert.Equal(t, []string{"/lib/bubble copy.mkv"}, conflict.Error.Paths)
	require.Len(t, conflict.Data, 1)
	assert.Equal(t, "/lib/abyss/e13.mkv", conflict.Data[0].Path)
	assert.Equal(t, []JoinSlug{{Slug: "made-in-abyss-s1e13"}}, conflict.Data[0].Entries)

	rec = do(e, http.MethodGet, "/videos/bubble", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/videos/guesses", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := Guesses{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.ElementsMatch(t, []string{"/lib/bubble.mkv", "/lib/abyss/e13.mkv"}, summary.Paths)

	rec = do(e, http.MethodDelete, "/videos", `["/lib/bubble.mkv","/lib/nope.mkv"]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["/lib/bubble.mkv"]`, rec.Body.String())

	rec = do(e, http.MethodGet, "/videos/unmatched?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

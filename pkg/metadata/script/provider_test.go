package script

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `{"manifestVersion": 1, "id": "%s", "name": "Test", "version": "1.0.0"%s}`

func writePlugin(t *testing.T, root, id, extra, mainJS string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	manifest := fmt.Sprintf(testManifest, id, extra)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.js"), []byte(mainJS), 0o644))
	return dir
}

func TestLoad_Functions(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  getShow: function(seed) { return null; },
  searchShows: function(q) { return []; },
  getSeason: "nope"
};`)

	_, err := Load(dir)
	assert.ErrorContains(t, err, "plugin.getSeason is not a function")

	dir = writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  getShow: function(seed) { return null; },
  searchShows: function(q) { return []; }
};`)
	p, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "anime", p.Slug())
	assert.Equal(t, []string{"getShow", "searchShows"}, p.Functions())
}

func TestLoad_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := Load(filepath.Join(root, "missing"))
	assert.ErrorContains(t, err, "failed to read manifest.json")

	dir := writePlugin(t, root, "noplugin", "", `var x = 1;`)
	_, err = Load(dir)
	assert.ErrorContains(t, err, "did not define a 'plugin' global")

	dir = writePlugin(t, root, "syntax", "", `var plugin = {`)
	_, err = Load(dir)
	assert.ErrorContains(t, err, "failed to execute main.js")
}

func TestGetShow(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  getShow: function(seed) {
    if (seed.name !== "Cowboy Bebop") { return null; }
    kino.log.info("found " + seed.name);
    return {
      name: "Cowboy Bebop",
      overview: "Space bounty hunters.",
      genres: ["Sci-Fi"],
      start_air: "1998-04-03T00:00:00Z",
      external_id: { anime: { data_id: "1" } }
    };
  }
};`)
	p, err := Load(dir)
	require.NoError(t, err)
	ctx := context.Background()

	show, err := p.GetShow(ctx, &models.Show{Name: "Cowboy Bebop", Kind: models.ShowKindSerie})
	require.NoError(t, err)
	require.NotNil(t, show)
	assert.Equal(t, "Space bounty hunters.", *show.Overview)
	assert.Equal(t, []string{"Sci-Fi"}, show.Genres)
	assert.Equal(t, 1998, show.StartAir.Year())
	assert.Equal(t, "1", show.ExternalID["anime"].DataID)

	show, err = p.GetShow(ctx, &models.Show{Name: "Other"})
	require.NoError(t, err)
	assert.Nil(t, show)

	_, err = p.GetSeason(ctx, &models.Season{})
	assert.ErrorIs(t, err, metadata.ErrUnsupported)
	_, err = p.SearchPeople(ctx, "x")
	assert.ErrorIs(t, err, metadata.ErrUnsupported)
}

func TestSearchShows(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  searchShows: function(query) {
    return [{ name: query + " 1" }, { name: query + " 2" }];
  }
};`)
	p, err := Load(dir)
	require.NoError(t, err)

	shows, err := p.SearchShows(context.Background(), "Bebop")
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "Bebop 2", shows[1].Name)
}

func TestThrowIsAnError(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  getShow: function() { throw new Error("upstream down"); }
};`)
	p, err := Load(dir)
	require.NoError(t, err)

	_, err = p.GetShow(context.Background(), &models.Show{})
	assert.ErrorContains(t, err, "upstream down")
}

func TestInterruptOnTimeout(t *testing.T) {
	dir := writePlugin(t, t.TempDir(), "anime", "", `
var plugin = {
  getShow: function() { while (true) {} },
  getPeople: function(seed) { return { name: seed.name }; }
};`)
	p, err := Load(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.GetShow(ctx, &models.Show{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The VM is usable again after an interrupt.
	person, err := p.GetPeople(context.Background(), &models.Person{Name: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", person.Name)
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	writePlugin(t, root, "b", "", `var plugin = {};`)
	writePlugin(t, root, "a", "", `var plugin = {};`)
	writePlugin(t, root, "broken", "", `var nothing;`)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	providers, err := LoadDir(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "a", providers[0].Slug())
	assert.Equal(t, "b", providers[1].Slug())

	providers, err = LoadDir(context.Background(), filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, providers)
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "Trigun", "q": "` + r.URL.Query().Get("q") + `"}`))
	}))
	defer server.Close()
	host := strings.TrimPrefix(server.URL, "http://")

	mainJS := `
var plugin = {
  searchShows: function(query) {
    var resp = kino.http.fetch("` + server.URL + `/search?q=" + query);
    if (!resp.ok) { throw new Error("status " + resp.status); }
    var body = resp.json();
    return [{ name: body.title, overview: body.q }];
  }
};`

	allowed := writePlugin(t, t.TempDir(), "allowed", `, "httpAccess": {"domains": ["`+host+`"]}`, mainJS)
	p, err := Load(allowed)
	require.NoError(t, err)
	shows, err := p.SearchShows(context.Background(), "tri")
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "Trigun", shows[0].Name)
	assert.Equal(t, "tri", *shows[0].Overview)

	denied := writePlugin(t, t.TempDir(), "denied", `, "httpAccess": {"domains": ["example.com"]}`, mainJS)
	p, err = Load(denied)
	require.NoError(t, err)
	_, err = p.SearchShows(context.Background(), "tri")
	assert.ErrorContains(t, err, "not in the allowed domains list")

	undeclared := writePlugin(t, t.TempDir(), "undeclared", "", mainJS)
	p, err = Load(undeclared)
	require.NoError(t, err)
	_, err = p.SearchShows(context.Background(), "tri")
	assert.ErrorContains(t, err, "does not declare httpAccess")
}

func TestValidateDomain(t *testing.T) {
	tests := []struct {
		host    string
		domains []string
		ok      bool
	}{
		{"api.themoviedb.org", []string{"api.themoviedb.org"}, true},
		{"API.themoviedb.org", []string{"api.themoviedb.org"}, true},
		{"themoviedb.org", []string{"*.themoviedb.org"}, true},
		{"a.b.themoviedb.org", []string{"*.themoviedb.org"}, true},
		{"evilthemoviedb.org", []string{"*.themoviedb.org"}, false},
		{"api.themoviedb.org:8080", []string{"api.themoviedb.org"}, false},
		{"api.themoviedb.org:8080", []string{"api.themoviedb.org:8080"}, true},
		{"api.themoviedb.org:443", []string{"api.themoviedb.org"}, true},
		{"[::1]:9000", []string{"[::1]:9000"}, true},
		{"other.org", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			err := validateDomain(tt.host, tt.domains)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errDomainNotAllowed)
			}
		})
	}
}

func TestParseManifest(t *testing.T) {
	_, err := ParseManifest([]byte(`{"manifestVersion": 2, "id": "a", "name": "A", "version": "1"}`))
	assert.ErrorContains(t, err, "unsupported manifestVersion 2")

	_, err = ParseManifest([]byte(`{"manifestVersion": 1, "name": "A", "version": "1"}`))
	assert.ErrorContains(t, err, "id is required")

	m, err := ParseManifest([]byte(`{"manifestVersion": 1, "id": "a", "name": "A", "version": "1", "httpAccess": {"domains": ["x.org"]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"x.org"}, m.HTTPAccess.Domains)
}

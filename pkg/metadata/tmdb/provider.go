// Package tmdb is a metadata provider backed by The Movie Database v3 API.
package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/models"
)

const (
	Slug = "tmdb"

	imdbSlug = "imdb"
	tvdbSlug = "tvdb"

	// castLimit bounds the number of actors taken from the credits.
	castLimit = 15
)

type Provider struct {
	client *client
}

var _ metadata.Provider = (*Provider)(nil)

// New returns a TMDB provider. It fails without an API key.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}
	return &Provider{client: newClient(cfg)}, nil
}

func (p *Provider) Slug() string {
	return Slug
}

// GetShow looks the show up by its tmdb id when it has one, and by searching its name
// and year otherwise. The first search result is taken.
func (p *Provider) GetShow(ctx context.Context, seed *models.Show) (*models.Show, error) {
	id, err := p.showID(ctx, seed)
	if err != nil || id == 0 {
		return nil, err
	}
	if seed.IsMovie() {
		return p.movie(ctx, id)
	}
	return p.tv(ctx, id)
}

func (p *Provider) GetSeason(ctx context.Context, seed *models.Season) (*models.Season, error) {
	tvID := tvIDOf(seed.Show)
	if tvID == 0 {
		return nil, nil
	}

	var details seasonDetails
	path := fmt.Sprintf("/tv/%d/season/%d", tvID, seed.SeasonNumber)
	if err := p.client.get(ctx, path, nil, &details); err != nil {
		return nil, ignoreNotFound(err)
	}

	season := &models.Season{
		SeasonNumber: seed.SeasonNumber,
		Name:         nonEmpty(details.Name),
		Overview:     nonEmpty(details.Overview),
		StartAir:     parseDate(details.AirDate),
		ExternalID: map[string]models.ExternalID{
			Slug: {DataID: strconv.Itoa(details.ID)},
		},
	}
	for _, ep := range details.Episodes {
		if d := parseDate(ep.AirDate); d != nil && (season.EndAir == nil || d.After(*season.EndAir)) {
			season.EndAir = d
		}
	}
	return season, nil
}

// GetEntry only knows episodes numbered by season and episode.
func (p *Provider) GetEntry(ctx context.Context, seed *models.Entry) (*models.Entry, error) {
	tvID := tvIDOf(seed.Show)
	if tvID == 0 || seed.Kind != models.EntryKindEpisode || seed.SeasonNumber == nil || seed.EpisodeNumber == nil {
		return nil, nil
	}

	var details episodeDetails
	path := fmt.Sprintf("/tv/%d/season/%d/episode/%d", tvID, *seed.SeasonNumber, *seed.EpisodeNumber)
	if err := p.client.get(ctx, path, nil, &details); err != nil {
		return nil, ignoreNotFound(err)
	}

	return &models.Entry{
		Kind:     models.EntryKindEpisode,
		Name:     nonEmpty(details.Name),
		Overview: nonEmpty(details.Overview),
		AirDate:  parseDate(details.AirDate),
		Runtime:  details.Runtime,
		ExternalID: map[string]models.ExternalID{
			Slug: {DataID: strconv.Itoa(details.ID)},
		},
	}, nil
}

func (p *Provider) GetCollection(ctx context.Context, seed *models.Collection) (*models.Collection, error) {
	id := idOf(seed.ExternalID)
	if id == 0 {
		var resp searchResponse[idResult]
		if err := p.client.get(ctx, "/search/collection", url.Values{"query": {seed.Name}}, &resp); err != nil {
			return nil, ignoreNotFound(err)
		}
		if len(resp.Results) == 0 {
			return nil, nil
		}
		id = resp.Results[0].ID
	}

	var details collectionDetails
	if err := p.client.get(ctx, fmt.Sprintf("/collection/%d", id), nil, &details); err != nil {
		return nil, ignoreNotFound(err)
	}
	return &models.Collection{
		Name:       details.Name,
		Overview:   nonEmpty(details.Overview),
		ExternalID: tmdbID("collection", details.ID),
	}, nil
}

func (p *Provider) GetPeople(ctx context.Context, seed *models.Person) (*models.Person, error) {
	if id := idOf(seed.ExternalID); id != 0 {
		var details idResult
		if err := p.client.get(ctx, fmt.Sprintf("/person/%d", id), nil, &details); err != nil {
			return nil, ignoreNotFound(err)
		}
		return &models.Person{Name: details.Name, ExternalID: tmdbID("person", details.ID)}, nil
	}

	people, err := p.SearchPeople(ctx, seed.Name)
	if err != nil || len(people) == 0 {
		return nil, err
	}
	return people[0], nil
}

// SearchShows returns movies and series in TMDB's relevance order.
func (p *Provider) SearchShows(ctx context.Context, query string) ([]*models.Show, error) {
	var resp searchResponse[multiResult]
	if err := p.client.get(ctx, "/search/multi", url.Values{"query": {query}}, &resp); err != nil {
		return nil, ignoreNotFound(err)
	}

	shows := []*models.Show{}
	for _, r := range resp.Results {
		switch r.MediaType {
		case "movie":
			shows = append(shows, &models.Show{
				Kind:       models.ShowKindMovie,
				Name:       r.Title,
				Overview:   nonEmpty(r.Overview),
				StartAir:   parseDate(r.ReleaseDate),
				ExternalID: tmdbID("movie", r.ID),
			})
		case "tv":
			shows = append(shows, &models.Show{
				Kind:       models.ShowKindSerie,
				Name:       r.Name,
				Overview:   nonEmpty(r.Overview),
				StartAir:   parseDate(r.FirstAirDate),
				ExternalID: tmdbID("tv", r.ID),
			})
		}
	}
	return shows, nil
}

func (p *Provider) SearchCollections(ctx context.Context, query string) ([]*models.Collection, error) {
	var resp searchResponse[idResult]
	if err := p.client.get(ctx, "/search/collection", url.Values{"query": {query}}, &resp); err != nil {
		return nil, ignoreNotFound(err)
	}
	collections := make([]*models.Collection, 0, len(resp.Results))
	for _, r := range resp.Results {
		collections = append(collections, &models.Collection{Name: r.Name, ExternalID: tmdbID("collection", r.ID)})
	}
	return collections, nil
}

func (p *Provider) SearchPeople(ctx context.Context, query string) ([]*models.Person, error) {
	var resp searchResponse[idResult]
	if err := p.client.get(ctx, "/search/person", url.Values{"query": {query}}, &resp); err != nil {
		return nil, ignoreNotFound(err)
	}
	people := make([]*models.Person, 0, len(resp.Results))
	for _, r := range resp.Results {
		people = append(people, &models.Person{Name: r.Name, ExternalID: tmdbID("person", r.ID)})
	}
	return people, nil
}

// showID returns the tmdb id of the show, searching for it when the seed has none.
// Zero means no match.
func (p *Provider) showID(ctx context.Context, seed *models.Show) (int, error) {
	if id := idOf(seed.ExternalID); id != 0 {
		return id, nil
	}
	if seed.Name == "" {
		return 0, nil
	}

	params := url.Values{"query": {seed.Name}}
	path := "/search/tv"
	yearParam := "first_air_date_year"
	if seed.IsMovie() {
		path = "/search/movie"
		yearParam = "year"
	}
	if year := seed.StartYear(); year != nil {
		params.Set(yearParam, strconv.Itoa(*year))
	}

	var resp searchResponse[idResult]
	if err := p.client.get(ctx, path, params, &resp); err != nil {
		return 0, ignoreNotFound(err)
	}
	if len(resp.Results) == 0 {
		return 0, nil
	}
	return resp.Results[0].ID, nil
}

func (p *Provider) movie(ctx context.Context, id int) (*models.Show, error) {
	var details movieDetails
	params := url.Values{"append_to_response": {"credits"}}
	if err := p.client.get(ctx, fmt.Sprintf("/movie/%d", id), params, &details); err != nil {
		return nil, ignoreNotFound(err)
	}

	show := &models.Show{
		Kind:       models.ShowKindMovie,
		Name:       details.Title,
		Overview:   nonEmpty(details.Overview),
		Genres:     genreNames(details.Genres),
		StartAir:   parseDate(details.ReleaseDate),
		Status:     movieStatus(details.Status),
		Cast:       castOf(details.Credits),
		ExternalID: tmdbID("movie", details.ID),
	}
	if details.OriginalTitle != "" && details.OriginalTitle != details.Title {
		show.Aliases = []string{details.OriginalTitle}
	}
	if details.ImdbID != nil && *details.ImdbID != "" {
		show.ExternalID[imdbSlug] = imdbID(*details.ImdbID)
	}
	if len(details.ProductionCompanies) > 0 {
		show.Studio = &models.Studio{
			Name:       details.ProductionCompanies[0].Name,
			ExternalID: tmdbID("company", details.ProductionCompanies[0].ID),
		}
	}
	if c := details.BelongsToCollection; c != nil {
		show.Collection = &models.Collection{Name: c.Name, ExternalID: tmdbID("collection", c.ID)}
	}
	return show, nil
}

func (p *Provider) tv(ctx context.Context, id int) (*models.Show, error) {
	var details tvDetails
	params := url.Values{"append_to_response": {"credits,external_ids"}}
	if err := p.client.get(ctx, fmt.Sprintf("/tv/%d", id), params, &details); err != nil {
		return nil, ignoreNotFound(err)
	}

	show := &models.Show{
		Kind:       models.ShowKindSerie,
		Name:       details.Name,
		Overview:   nonEmpty(details.Overview),
		Genres:     genreNames(details.Genres),
		StartAir:   parseDate(details.FirstAirDate),
		Status:     tvStatus(details.Status),
		Cast:       castOf(details.Credits),
		ExternalID: tmdbID("tv", details.ID),
	}
	if details.OriginalName != "" && details.OriginalName != details.Name {
		show.Aliases = []string{details.OriginalName}
	}
	if show.Status == models.ShowStatusFinished {
		show.EndAir = parseDate(details.LastAirDate)
	}
	if ids := details.ExternalIDs; ids != nil {
		if ids.ImdbID != nil && *ids.ImdbID != "" {
			show.ExternalID[imdbSlug] = imdbID(*ids.ImdbID)
		}
		if ids.TvdbID != nil && *ids.TvdbID != 0 {
			show.ExternalID[tvdbSlug] = models.ExternalID{DataID: strconv.Itoa(*ids.TvdbID)}
		}
	}
	studios := details.ProductionCompanies
	if len(studios) == 0 {
		studios = details.Networks
	}
	if len(studios) > 0 {
		show.Studio = &models.Studio{
			Name:       studios[0].Name,
			ExternalID: tmdbID("company", studios[0].ID),
		}
	}
	return show, nil
}

func tvIDOf(show *models.Show) int {
	if show == nil || show.IsMovie() {
		return 0
	}
	return idOf(show.ExternalID)
}

func idOf(ids map[string]models.ExternalID) int {
	ext, ok := ids[Slug]
	if !ok {
		return 0
	}
	id, err := strconv.Atoi(ext.DataID)
	if err != nil {
		return 0
	}
	return id
}

func tmdbID(kind string, id int) map[string]models.ExternalID {
	return map[string]models.ExternalID{
		Slug: {
			DataID: strconv.Itoa(id),
			Link:   pointerutil.String(fmt.Sprintf("https://www.themoviedb.org/%s/%d", kind, id)),
		},
	}
}

func imdbID(id string) models.ExternalID {
	return models.ExternalID{
		DataID: id,
		Link:   pointerutil.String("https://www.imdb.com/title/" + id),
	}
}

func castOf(c *credits) []*models.ShowPerson {
	if c == nil {
		return nil
	}
	var cast []*models.ShowPerson
	for i, m := range c.Cast {
		if i >= castLimit {
			break
		}
		sp := &models.ShowPerson{
			Type:   models.PersonTypeActor,
			Person: &models.Person{Name: m.Name, ExternalID: tmdbID("person", m.ID)},
		}
		if m.Character != "" {
			sp.Role = pointerutil.String(m.Character)
		}
		cast = append(cast, sp)
	}
	for _, m := range c.Crew {
		kind := crewType(m.Job)
		if kind == "" {
			continue
		}
		cast = append(cast, &models.ShowPerson{
			Type:   kind,
			Person: &models.Person{Name: m.Name, ExternalID: tmdbID("person", m.ID)},
		})
	}
	return cast
}

func crewType(job string) string {
	switch job {
	case "Director":
		return models.PersonTypeDirector
	case "Writer", "Screenplay":
		return models.PersonTypeWriter
	case "Producer", "Executive Producer":
		return models.PersonTypeProducer
	case "Original Music Composer", "Music":
		return models.PersonTypeMusic
	}
	return ""
}

func genreNames(genres []genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

func movieStatus(status string) string {
	switch status {
	case "Released":
		return models.ShowStatusFinished
	case "Rumored", "Planned", "In Production", "Post Production":
		return models.ShowStatusPlanned
	}
	return models.ShowStatusUnknown
}

func tvStatus(status string) string {
	switch status {
	case "Ended", "Canceled":
		return models.ShowStatusFinished
	case "Returning Series":
		return models.ShowStatusAiring
	case "Planned", "In Production", "Pilot":
		return models.ShowStatusPlanned
	}
	return models.ShowStatusUnknown
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ignoreNotFound(err error) error {
	if errors.Is(err, errNotFound) {
		return nil
	}
	return err
}

// Package identifier extracts a best-effort identity from the path of a media file.
// It performs no I/O.
package identifier

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
)

// ErrUnidentifiable is returned when no pattern matches a path.
var ErrUnidentifiable = errors.New("unidentifiable media")

// Patterns configures the regexes used by an Identifier. An empty family falls back
// to its default.
type Patterns struct {
	Primary  []string
	Absolute []string
	Movie    []string
	Subtitle []string
}

type Identifier struct {
	primary  []*regexp.Regexp
	absolute []*regexp.Regexp
	movie    []*regexp.Regexp
	subtitle []*regexp.Regexp
}

// Candidate is the identity extracted from a path. It describes a movie when none of
// the numbers are set.
type Candidate struct {
	CollectionName *string `json:"collection_name,omitempty"`
	ShowTitle      string  `json:"show_title"`
	StartYear      *int    `json:"start_year,omitempty"`
	SeasonNumber   *int    `json:"season_number,omitempty"`
	EpisodeNumber  *int    `json:"episode_number,omitempty"`
	AbsoluteNumber *int    `json:"absolute_number,omitempty"`
}

// TrackCandidate is the identity extracted from the path of an external subtitle.
type TrackCandidate struct {
	// EpisodePath is the path prefix shared with the video the subtitle belongs to.
	EpisodePath string
	Language    string
	IsDefault   bool
	IsForced    bool
	Codec       string
	Path        string
}

func New(patterns Patterns) (*Identifier, error) {
	var err error
	id := &Identifier{}
	if id.primary, err = compile(patterns.Primary, DefaultPatterns); err != nil {
		return nil, err
	}
	if id.absolute, err = compile(patterns.Absolute, DefaultAbsolutePatterns); err != nil {
		return nil, err
	}
	if id.movie, err = compile(patterns.Movie, DefaultMoviePatterns); err != nil {
		return nil, err
	}
	if id.subtitle, err = compile(patterns.Subtitle, DefaultSubtitlePatterns); err != nil {
		return nil, err
	}
	return id, nil
}

// NewDefault returns an Identifier using only the default patterns.
func NewDefault() *Identifier {
	id, err := New(Patterns{})
	if err != nil {
		panic(err)
	}
	return id
}

func compile(patterns, defaults []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		patterns = defaults
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid identifier pattern %q", p)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Identify extracts a candidate from path. The path is first made relative to the
// longest library root it lives under. Season and episode patterns are tried first,
// then absolute numbering, then movies.
func (id *Identifier) Identify(path string, libraryRoots []string) (*Candidate, error) {
	relative := RelativePath(path, libraryRoots)

	for _, re := range id.primary {
		groups, ok := match(re, relative)
		if !ok {
			continue
		}
		season, serr := strconv.Atoi(groups["Season"])
		episode, eerr := strconv.Atoi(groups["Episode"])
		if serr != nil || eerr != nil {
			// Unparsable numbers fall through to absolute numbering.
			break
		}
		c := newCandidate(groups)
		c.SeasonNumber = &season
		c.EpisodeNumber = &episode
		return c, nil
	}

	for _, re := range id.absolute {
		groups, ok := match(re, relative)
		if !ok {
			continue
		}
		absolute, err := strconv.Atoi(groups["Absolute"])
		if err != nil {
			continue
		}
		c := newCandidate(groups)
		if numberEndsTitle(c.ShowTitle, groups["Absolute"]) {
			// "Blade Runner 2049/Blade Runner 2049.mkv" is a movie, not episode 2049.
			continue
		}
		c.AbsoluteNumber = &absolute
		return c, nil
	}

	for _, re := range id.movie {
		groups, ok := match(re, relative)
		if !ok {
			continue
		}
		return newCandidate(groups), nil
	}

	return nil, errors.Wrapf(ErrUnidentifiable, "%s does not match any pattern", path)
}

// IdentifyTrack extracts the identity of an external subtitle file.
func (id *Identifier) IdentifyTrack(path string) (*TrackCandidate, error) {
	for _, re := range id.subtitle {
		groups, ok := match(re, path)
		if !ok {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		codec, ok := subtitleCodecs[strings.ToLower(ext)]
		if !ok {
			codec = ext
		}
		return &TrackCandidate{
			EpisodePath: groups["Episode"],
			Language:    strings.ToLower(groups["Language"]),
			IsDefault:   groups["Default"] != "",
			IsForced:    groups["Forced"] != "",
			Codec:       codec,
			Path:        path,
		}, nil
	}
	return nil, errors.Wrapf(ErrUnidentifiable, "%s does not match any subtitle pattern", path)
}

// IsMovie reports whether the candidate carries no episode numbering.
func (c *Candidate) IsMovie() bool {
	return c.SeasonNumber == nil && c.EpisodeNumber == nil && c.AbsoluteNumber == nil
}

// Guess converts the candidate into the form consumed by the matcher.
func (c *Candidate) Guess() models.Guess {
	g := models.Guess{
		Title: c.ShowTitle,
		Kind:  models.GuessKindMovie,
		From:  "identifier",
	}
	if c.StartYear != nil {
		g.Years = []int{*c.StartYear}
	}
	switch {
	case c.SeasonNumber != nil && c.EpisodeNumber != nil:
		g.Kind = models.GuessKindEpisode
		season := *c.SeasonNumber
		g.Episodes = []models.GuessEpisode{{Season: &season, Episode: *c.EpisodeNumber}}
	case c.AbsoluteNumber != nil:
		g.Kind = models.GuessKindEpisode
		g.Episodes = []models.GuessEpisode{{Episode: *c.AbsoluteNumber}}
	}
	return g
}

// RelativePath strips the longest library root that prefixes path. The result keeps
// its leading "/". Paths outside every root are returned unchanged.
func RelativePath(path string, libraryRoots []string) string {
	longest := ""
	for _, root := range libraryRoots {
		root = strings.TrimSuffix(root, "/")
		if root == "" {
			continue
		}
		if path != root && !strings.HasPrefix(path, root+"/") {
			continue
		}
		if len(root) > len(longest) {
			longest = root
		}
	}
	return strings.TrimPrefix(path, longest)
}

func match(re *regexp.Regexp, s string) (map[string]string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	groups := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && m[i] != "" {
			groups[name] = m[i]
		}
	}
	return groups, true
}

func newCandidate(groups map[string]string) *Candidate {
	c := &Candidate{ShowTitle: strings.TrimSpace(groups["Show"])}
	if collection := strings.TrimSpace(groups["Collection"]); collection != "" {
		c.CollectionName = &collection
	}
	if year, err := strconv.Atoi(groups["StartYear"]); err == nil {
		c.StartYear = &year
	}
	return c
}

func numberEndsTitle(title, number string) bool {
	slug := slugs.FromTitle(title)
	n := strings.TrimLeft(number, "0")
	if n == "" {
		n = "0"
	}
	return slug == number || strings.HasSuffix(slug, "-"+number) || strings.HasSuffix(slug, "-"+n)
}

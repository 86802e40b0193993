package metadata

import (
	"strings"
	"time"

	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/slugs"
)

// field is one mergeable attribute of T. Names match the JSON name of the attribute,
// which is also what ForceRefresh refers to.
type field[T any] struct {
	name  string
	empty func(*T) bool
	// take copies src's value into dst. For collections it adds the elements of src
	// that dst lacks.
	take  func(dst, src *T)
	clear func(*T)
}

// fold merges providers' answers into a copy of seed. Answers come in priority order
// and nil answers are ignored.
func fold[T any](seed *T, found []*T, force []string, fields []field[T], clone func(*T) *T) *T {
	if seed == nil {
		seed = new(T)
	}
	forced := map[string]struct{}{}
	for _, name := range force {
		forced[name] = struct{}{}
	}

	out := clone(seed)
	for _, f := range fields {
		if _, ok := forced[f.name]; ok {
			f.clear(out)
		}
	}
	for _, src := range found {
		if src == nil {
			continue
		}
		for _, f := range fields {
			f.take(out, src)
		}
	}
	for _, f := range fields {
		if _, ok := forced[f.name]; ok && f.empty(out) {
			f.take(out, seed)
		}
	}
	return out
}

// value is a field whose zero value (or one of the listed blanks) means unset.
func value[T any, V comparable](name string, get func(*T) *V, blanks ...V) field[T] {
	isEmpty := func(v V) bool {
		var zero V
		if v == zero {
			return true
		}
		for _, b := range blanks {
			if v == b {
				return true
			}
		}
		return false
	}
	return field[T]{
		name:  name,
		empty: func(t *T) bool { return isEmpty(*get(t)) },
		take: func(dst, src *T) {
			if isEmpty(*get(dst)) && !isEmpty(*get(src)) {
				*get(dst) = *get(src)
			}
		},
		clear: func(t *T) {
			var zero V
			*get(t) = zero
		},
	}
}

// optional is a pointer field. nil is unset.
func optional[T any, V any](name string, get func(*T) **V) field[T] {
	return field[T]{
		name:  name,
		empty: func(t *T) bool { return *get(t) == nil },
		take: func(dst, src *T) {
			if *get(dst) == nil && *get(src) != nil {
				v := **get(src)
				*get(dst) = &v
			}
		},
		clear: func(t *T) { *get(t) = nil },
	}
}

// text is an optional string field. nil and blank strings are unset.
func text[T any](name string, get func(*T) **string) field[T] {
	isEmpty := func(s *string) bool { return s == nil || strings.TrimSpace(*s) == "" }
	return field[T]{
		name:  name,
		empty: func(t *T) bool { return isEmpty(*get(t)) },
		take: func(dst, src *T) {
			if isEmpty(*get(dst)) && !isEmpty(*get(src)) {
				v := **get(src)
				*get(dst) = &v
			}
		},
		clear: func(t *T) { *get(t) = nil },
	}
}

// set is a slice field merged as a union keyed by key. First seen wins.
func set[T any, V any](name string, get func(*T) *[]V, key func(V) string) field[T] {
	return field[T]{
		name:  name,
		empty: func(t *T) bool { return len(*get(t)) == 0 },
		take: func(dst, src *T) {
			seen := map[string]struct{}{}
			for _, v := range *get(dst) {
				seen[key(v)] = struct{}{}
			}
			for _, v := range *get(src) {
				k := key(v)
				if k == "" {
					continue
				}
				if _, ok := seen[k]; ok {
					continue
				}
				seen[k] = struct{}{}
				*get(dst) = append(*get(dst), v)
			}
		},
		clear: func(t *T) { *get(t) = nil },
	}
}

func externalIDs[T any](get func(*T) *map[string]models.ExternalID) field[T] {
	return field[T]{
		name:  "external_id",
		empty: func(t *T) bool { return len(*get(t)) == 0 },
		take: func(dst, src *T) {
			*get(dst) = models.MergeExternalIDs(*get(dst), *get(src))
		},
		clear: func(t *T) { *get(t) = nil },
	}
}

func castKey(sp *models.ShowPerson) string {
	if sp == nil || sp.Person == nil {
		return ""
	}
	slug := sp.Person.Slug
	if slug == "" {
		slug = slugs.FromTitle(sp.Person.Name)
	}
	if slug == "" {
		return ""
	}
	kind := sp.Type
	if kind == "" {
		kind = models.PersonTypeOther
	}
	return slug + "/" + kind
}

var showFields = []field[models.Show]{
	value("name", func(s *models.Show) *string { return &s.Name }),
	value("sort_name", func(s *models.Show) *string { return &s.SortName }),
	value("kind", func(s *models.Show) *string { return &s.Kind }),
	value("status", func(s *models.Show) *string { return &s.Status }, models.ShowStatusUnknown),
	text("overview", func(s *models.Show) **string { return &s.Overview }),
	optional("start_air", func(s *models.Show) **time.Time { return &s.StartAir }),
	optional("end_air", func(s *models.Show) **time.Time { return &s.EndAir }),
	optional("studio", func(s *models.Show) **models.Studio { return &s.Studio }),
	optional("collection", func(s *models.Show) **models.Collection { return &s.Collection }),
	set("aliases", func(s *models.Show) *[]string { return &s.Aliases }, slugs.FromTitle),
	set("genres", func(s *models.Show) *[]string { return &s.Genres }, slugs.FromTitle),
	set("cast", func(s *models.Show) *[]*models.ShowPerson { return &s.Cast }, castKey),
	externalIDs(func(s *models.Show) *map[string]models.ExternalID { return &s.ExternalID }),
}

var seasonFields = []field[models.Season]{
	text("name", func(s *models.Season) **string { return &s.Name }),
	text("overview", func(s *models.Season) **string { return &s.Overview }),
	optional("start_air", func(s *models.Season) **time.Time { return &s.StartAir }),
	optional("end_air", func(s *models.Season) **time.Time { return &s.EndAir }),
	externalIDs(func(s *models.Season) *map[string]models.ExternalID { return &s.ExternalID }),
}

var entryFields = []field[models.Entry]{
	text("name", func(e *models.Entry) **string { return &e.Name }),
	text("overview", func(e *models.Entry) **string { return &e.Overview }),
	optional("air_date", func(e *models.Entry) **time.Time { return &e.AirDate }),
	optional("runtime", func(e *models.Entry) **int { return &e.Runtime }),
	optional("order", func(e *models.Entry) **float64 { return &e.Order }),
	text("extra_kind", func(e *models.Entry) **string { return &e.ExtraKind }),
	externalIDs(func(e *models.Entry) *map[string]models.ExternalID { return &e.ExternalID }),
}

var collectionFields = []field[models.Collection]{
	value("name", func(c *models.Collection) *string { return &c.Name }),
	text("overview", func(c *models.Collection) **string { return &c.Overview }),
	externalIDs(func(c *models.Collection) *map[string]models.ExternalID { return &c.ExternalID }),
}

var personFields = []field[models.Person]{
	value("name", func(p *models.Person) *string { return &p.Name }),
	externalIDs(func(p *models.Person) *map[string]models.ExternalID { return &p.ExternalID }),
}

func cloneExternalIDs(m map[string]models.ExternalID) map[string]models.ExternalID {
	if m == nil {
		return nil
	}
	out := make(map[string]models.ExternalID, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[V any](s []V) []V {
	if s == nil {
		return nil
	}
	return append(make([]V, 0, len(s)), s...)
}

func cloneShow(s *models.Show) *models.Show {
	if s == nil {
		return nil
	}
	c := *s
	c.Aliases = cloneSlice(s.Aliases)
	c.Genres = cloneSlice(s.Genres)
	c.Cast = cloneSlice(s.Cast)
	c.Seasons = cloneSlice(s.Seasons)
	c.Entries = cloneSlice(s.Entries)
	c.ExternalID = cloneExternalIDs(s.ExternalID)
	return &c
}

func cloneSeason(s *models.Season) *models.Season {
	if s == nil {
		return nil
	}
	c := *s
	c.ExternalID = cloneExternalIDs(s.ExternalID)
	return &c
}

func cloneEntry(e *models.Entry) *models.Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Videos = cloneSlice(e.Videos)
	c.Tracks = cloneSlice(e.Tracks)
	c.ExternalID = cloneExternalIDs(e.ExternalID)
	return &c
}

func cloneCollection(col *models.Collection) *models.Collection {
	if col == nil {
		return nil
	}
	c := *col
	c.Shows = cloneSlice(col.Shows)
	c.ExternalID = cloneExternalIDs(col.ExternalID)
	return &c
}

func clonePerson(p *models.Person) *models.Person {
	if p == nil {
		return nil
	}
	c := *p
	c.ExternalID = cloneExternalIDs(p.ExternalID)
	return &c
}

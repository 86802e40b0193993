package videos

import (
	"context"
	"database/sql"
	"slices"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/cascade"
	"github.com/shishobooks/kino/pkg/database"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/search"
	"github.com/shishobooks/kino/pkg/slugs"
	"github.com/uptrace/bun"
)

// unknownYear is the year key of guesses that carry no year.
const unknownYear = "unknown"

// SeedVideo is a video file seen on disk. An empty rendering is derived from the path.
type SeedVideo struct {
	Path      string       `json:"path"`
	Rendering string       `json:"rendering,omitempty"`
	Part      *int         `json:"part,omitempty"`
	Version   int          `json:"version,omitempty"`
	Guess     models.Guess `json:"guess"`
	For       []Hint       `json:"for,omitempty"`
}

type JoinSlug struct {
	Slug string `json:"slug"`
}

type RegisteredVideo struct {
	ID      int          `json:"id"`
	Path    string       `json:"path"`
	Guess   models.Guess `json:"guess"`
	Entries []JoinSlug   `json:"entries"`
}

// RegisterResult holds the outcome of a batch. Conflicts are the paths that were
// refused because another path holds their rendering, part and version. Unmatched are
// the registered paths that are attached to no entry.
type RegisterResult struct {
	Videos    []*RegisteredVideo `json:"videos"`
	Conflicts []string           `json:"conflicts"`
	Unmatched []string           `json:"unmatched"`
}

type LinkRequest struct {
	VideoID int    `json:"id"`
	For     []Hint `json:"for"`
}

type ShowRef struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
}

// Guesses summarizes the registered videos. Guesses maps a guessed title, then a
// guessed year (or "unknown"), to the show its videos were attached to.
type Guesses struct {
	Paths     []string                      `json:"paths"`
	Guesses   map[string]map[string]ShowRef `json:"guesses"`
	Unmatched []string                      `json:"unmatched"`
}

type RetrieveVideoOptions struct {
	ID   *int
	Path *string
	// Slug is the slug of one of the video's entry joins.
	Slug *string
}

type ListUnmatchedOptions struct {
	Search *string
	Limit  *int
	Offset *int

	includeTotal bool
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// Register stores a batch of videos and attaches them to the entries their hints
// name. Every video is written in its own savepoint: a video refused for its rendering
// is reported in the result and does not stop the others.
func (svc *Service) Register(ctx context.Context, seeds []SeedVideo) (*RegisterResult, error) {
	log := logger.FromContext(ctx)
	result := &RegisterResult{
		Videos:    []*RegisteredVideo{},
		Conflicts: []string{},
		Unmatched: []string{},
	}
	if len(seeds) == 0 {
		return result, nil
	}
	for _, seed := range seeds {
		if seed.Path == "" {
			return nil, errcodes.ValidationError("Every video needs a path.")
		}
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		touched := []int{}
		for _, seed := range seeds {
			video, err := upsertVideo(ctx, tx, seed, now)
			if database.IsUniqueViolation(err, "ux_videos_rendering") {
				log.Warn("video conflicts with an existing rendering", logger.Data{"path": seed.Path})
				result.Conflicts = append(result.Conflicts, seed.Path)
				continue
			}
			if err != nil {
				return err
			}

			joins, entryIDs, err := link(ctx, tx, video, seed.For)
			if err != nil {
				return err
			}
			touched = append(touched, entryIDs...)
			if len(joins) == 0 {
				// Joins from earlier registrations or links still hold.
				joins, err = existingJoins(ctx, tx, video.ID)
				if err != nil {
					return err
				}
			}
			if len(joins) == 0 {
				result.Unmatched = append(result.Unmatched, video.Path)
			}
			result.Videos = append(result.Videos, &RegisteredVideo{
				ID:      video.ID,
				Path:    video.Path,
				Guess:   video.Guess,
				Entries: joins,
			})
		}
		return settle(ctx, tx, touched, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Link attaches videos that are already registered to the entries their hints name.
func (svc *Service) Link(ctx context.Context, requests []LinkRequest) ([]*RegisteredVideo, error) {
	linked := []*RegisteredVideo{}
	if len(requests) == 0 {
		return linked, nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		touched := []int{}
		for _, req := range requests {
			video := &models.Video{}
			err := tx.NewSelect().Model(video).Where("v.id = ?", req.VideoID).Scan(ctx)
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Video")
			}
			if err != nil {
				return errors.WithStack(err)
			}

			joins, entryIDs, err := link(ctx, tx, video, req.For)
			if err != nil {
				return err
			}
			touched = append(touched, entryIDs...)
			linked = append(linked, &RegisteredVideo{
				ID:      video.ID,
				Path:    video.Path,
				Guess:   video.Guess,
				Entries: joins,
			})
		}
		return settle(ctx, tx, touched, time.Now())
	})
	if err != nil {
		return nil, err
	}

	return linked, nil
}

// Delete removes the videos stored under the given paths with their entry joins.
// Entries left without a video stop being available. It returns the paths that were
// removed.
func (svc *Service) Delete(ctx context.Context, paths []string) ([]string, error) {
	removed := []string{}
	if len(paths) == 0 {
		return removed, nil
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		videos := []*models.Video{}
		err := tx.NewSelect().
			Model(&videos).
			Column("v.id", "v.path").
			Where("v.path IN (?)", bun.In(paths)).
			Order("v.path ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if len(videos) == 0 {
			return nil
		}

		videoIDs := make([]int, 0, len(videos))
		for _, v := range videos {
			videoIDs = append(videoIDs, v.ID)
			removed = append(removed, v.Path)
		}

		entryIDs := []int{}
		err = tx.NewSelect().
			Model((*models.EntryVideo)(nil)).
			ColumnExpr("DISTINCT ev.entry_id").
			Where("ev.video_id IN (?)", bun.In(videoIDs)).
			Scan(ctx, &entryIDs)
		if err != nil {
			return errors.WithStack(err)
		}
		showIDs, err := cascade.ShowIDsForEntries(ctx, tx, entryIDs)
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model((*models.EntryVideo)(nil)).
			Where("video_id IN (?)", bun.In(videoIDs)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().
			Model((*models.Video)(nil)).
			Where("id IN (?)", bun.In(videoIDs)).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		err = cascade.ClearUnavailable(ctx, tx, entryIDs)
		if err != nil {
			return err
		}
		return cascade.RecountShows(ctx, tx, showIDs)
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}

func (svc *Service) RetrieveVideo(ctx context.Context, opts RetrieveVideoOptions) (*models.Video, error) {
	video := &models.Video{}

	q := svc.db.
		NewSelect().
		Model(video).
		Relation("Entries", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("ev.slug ASC")
		})

	if opts.ID != nil {
		q = q.Where("v.id = ?", *opts.ID)
	}
	if opts.Path != nil {
		q = q.Where("v.path = ?", *opts.Path)
	}
	if opts.Slug != nil {
		q = q.Where("EXISTS (SELECT 1 FROM entry_videos AS j WHERE j.video_id = v.id AND j.slug = ?)", *opts.Slug)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Video")
		}
		return nil, errors.WithStack(err)
	}

	return video, nil
}

// ListPaths returns the paths of every registered video under root.
func (svc *Service) ListPaths(ctx context.Context, root string) ([]string, error) {
	paths := []string{}
	err := svc.db.NewSelect().
		Model((*models.Video)(nil)).
		Column("v.path").
		Where("v.path LIKE ? ESCAPE '\\'", search.EscapeLike(root)+"%").
		Order("v.path ASC").
		Scan(ctx, &paths)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return paths, nil
}

// EntryIDsForPathPrefix returns the entries attached to videos whose path starts with
// prefix. External subtitles find the entry they belong to this way.
func (svc *Service) EntryIDsForPathPrefix(ctx context.Context, prefix string) ([]int, error) {
	ids := []int{}
	err := svc.db.NewSelect().
		Model((*models.EntryVideo)(nil)).
		ColumnExpr("DISTINCT ev.entry_id").
		Join("JOIN videos AS v ON v.id = ev.video_id").
		Where("v.path LIKE ? ESCAPE '\\'", search.EscapeLike(prefix)+"%").
		Order("ev.entry_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

// Guesses summarizes what the registered videos were guessed to be and where they
// ended up.
func (svc *Service) Guesses(ctx context.Context) (*Guesses, error) {
	summary := &Guesses{
		Paths:     []string{},
		Guesses:   map[string]map[string]ShowRef{},
		Unmatched: []string{},
	}

	err := svc.db.NewSelect().
		Model((*models.Video)(nil)).
		Column("v.path").
		Order("v.path ASC").
		Scan(ctx, &summary.Paths)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = svc.db.NewSelect().
		Model((*models.Video)(nil)).
		Column("v.path").
		Where("NOT EXISTS (SELECT 1 FROM entry_videos AS ev WHERE ev.video_id = v.id)").
		Order("v.path ASC").
		Scan(ctx, &summary.Unmatched)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	rows := []struct {
		Guess    models.Guess `bun:"guess"`
		ShowID   int          `bun:"show_id"`
		ShowSlug string       `bun:"show_slug"`
	}{}
	err = svc.db.NewSelect().
		TableExpr("videos AS v").
		ColumnExpr("v.guess, s.id AS show_id, s.slug AS show_slug").
		Join("JOIN entry_videos AS ev ON ev.video_id = v.id").
		Join("JOIN entries AS e ON e.id = ev.entry_id").
		Join("JOIN shows AS s ON s.id = e.show_id").
		OrderExpr("v.id ASC, s.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, row := range rows {
		title := row.Guess.Title
		if title == "" {
			continue
		}
		years, ok := summary.Guesses[title]
		if !ok {
			years = map[string]ShowRef{}
			summary.Guesses[title] = years
		}
		ref := ShowRef{ID: row.ShowID, Slug: row.ShowSlug}
		if len(row.Guess.Years) == 0 {
			years[unknownYear] = ref
			continue
		}
		for _, y := range row.Guess.Years {
			years[strconv.Itoa(y)] = ref
		}
	}

	return summary, nil
}

func (svc *Service) ListUnmatched(ctx context.Context, opts ListUnmatchedOptions) ([]*models.Video, error) {
	v, _, err := svc.listUnmatchedWithTotal(ctx, opts)
	return v, errors.WithStack(err)
}

func (svc *Service) ListUnmatchedWithTotal(ctx context.Context, opts ListUnmatchedOptions) ([]*models.Video, int, error) {
	opts.includeTotal = true
	return svc.listUnmatchedWithTotal(ctx, opts)
}

func (svc *Service) listUnmatchedWithTotal(ctx context.Context, opts ListUnmatchedOptions) ([]*models.Video, int, error) {
	videos := []*models.Video{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&videos).
		Where("NOT EXISTS (SELECT 1 FROM entry_videos AS ev WHERE ev.video_id = v.id)").
		Order("v.created_at DESC", "v.id ASC")

	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + search.EscapeLike(*opts.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("v.path LIKE ? ESCAPE '\\'", pattern).
				WhereOr("json_extract(v.guess, '$.title') LIKE ? ESCAPE '\\'", pattern)
		})
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return videos, total, nil
}

// existingJoins lists the join slugs a video already has.
func existingJoins(ctx context.Context, db bun.IDB, videoID int) ([]JoinSlug, error) {
	joins := []JoinSlug{}
	err := db.NewSelect().
		Model((*models.EntryVideo)(nil)).
		Column("ev.slug").
		Where("ev.video_id = ?", videoID).
		Order("ev.id ASC").
		Scan(ctx, &joins)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return joins, nil
}

// upsertVideo writes a video by path in a savepoint. A video already stored under the
// path takes the new rendering, numbering and guess. A rendering derived from the path
// also takes its part and version from the path unless they were given.
func upsertVideo(ctx context.Context, db bun.IDB, seed SeedVideo, now time.Time) (*models.Video, error) {
	video := &models.Video{
		CreatedAt: now,
		UpdatedAt: now,
		Path:      seed.Path,
		Rendering: seed.Rendering,
		Part:      seed.Part,
		Version:   seed.Version,
		Guess:     seed.Guess,
	}
	if video.Rendering == "" {
		video.Rendering = Rendering(seed.Path)
		part, version := Markers(seed.Path)
		if video.Part == nil {
			video.Part = part
		}
		if video.Version < 1 {
			video.Version = version
		}
	}
	if video.Version < 1 {
		video.Version = 1
	}

	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(video).
			On("CONFLICT (path) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at").
			Set("rendering = EXCLUDED.rendering").
			Set("part = EXCLUDED.part").
			Set("version = EXCLUDED.version").
			Set("guess = EXCLUDED.guess").
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return video, nil
}

// link resolves every hint and attaches the video to the entries found. It returns the
// join slugs and the ids of the entries that were attached.
func link(ctx context.Context, db bun.IDB, video *models.Video, hints []Hint) ([]JoinSlug, []int, error) {
	log := logger.FromContext(ctx)
	joins := []JoinSlug{}
	entryIDs := []int{}

	for _, hint := range hints {
		entries, via, err := resolveHint(ctx, db, hint)
		if err != nil {
			return nil, nil, err
		}
		if len(entries) == 0 {
			log.Debug("video hint matched no entry", logger.Data{"path": video.Path})
			continue
		}
		for _, entry := range entries {
			if slices.Contains(entryIDs, entry.ID) {
				continue
			}
			slug, err := attach(ctx, db, entry, video)
			if err != nil {
				return nil, nil, err
			}
			log.Debug("video attached", logger.Data{"path": video.Path, "slug": slug, "strategy": via})
			joins = append(joins, JoinSlug{Slug: slug})
			entryIDs = append(entryIDs, entry.ID)
		}
	}

	return joins, entryIDs, nil
}

// attach joins a video to an entry. An existing join keeps its slug. A new one is
// slugged from the entry, with the rendering included when the entry already shows
// another rendering.
func attach(ctx context.Context, db bun.IDB, entry *models.Entry, video *models.Video) (string, error) {
	existing := &models.EntryVideo{}
	err := db.NewSelect().
		Model(existing).
		Where("ev.entry_id = ?", entry.ID).
		Where("ev.video_id = ?", video.ID).
		Scan(ctx)
	if err == nil {
		return existing.Slug, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", errors.WithStack(err)
	}

	otherRendering, err := db.NewSelect().
		Model((*models.EntryVideo)(nil)).
		Join("JOIN videos AS v ON v.id = ev.video_id").
		Where("ev.entry_id = ?", entry.ID).
		Where("v.rendering != ?", video.Rendering).
		Exists(ctx)
	if err != nil {
		return "", errors.WithStack(err)
	}

	base := slugs.EntryVideo(entry.Slug, video.Part, video.Rendering, video.Version, otherRendering)
	return database.WithUniqueSlug(ctx, db, "entry_videos.slug", base, nil, func(ctx context.Context, tx bun.IDB, slug string) error {
		join := &models.EntryVideo{
			EntryID:   entry.ID,
			VideoID:   video.ID,
			CreatedAt: time.Now(),
			Slug:      slug,
		}
		_, err := tx.NewInsert().Model(join).Exec(ctx)
		return errors.WithStack(err)
	})
}

// settle updates the availability of the entries that were attached and recounts
// their shows.
func settle(ctx context.Context, db bun.IDB, entryIDs []int, now time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}
	slices.Sort(entryIDs)
	entryIDs = slices.Compact(entryIDs)

	err := cascade.MarkAvailable(ctx, db, entryIDs, now)
	if err != nil {
		return err
	}
	showIDs, err := cascade.ShowIDsForEntries(ctx, db, entryIDs)
	if err != nil {
		return err
	}
	return cascade.RecountShows(ctx, db, showIDs)
}

// Package ingest turns a file found in a library into catalog resources and a
// registered video.
package ingest

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/entries"
	"github.com/shishobooks/kino/pkg/errcodes"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/seasons"
	"github.com/shishobooks/kino/pkg/shows"
	"github.com/shishobooks/kino/pkg/tracks"
	"github.com/shishobooks/kino/pkg/videos"
	"github.com/uptrace/bun"
)

// Result describes what became of one file.
type Result struct {
	Path  string
	Show  *models.Show
	Entry *models.Entry
	Video *videos.RegisteredVideo
	// ShowCreated is set when the show did not exist before this file.
	ShowCreated bool
	// Unknown is set when the file could not be identified and was attached to an
	// unknown entry.
	Unknown bool
	// Conflict is set when another path already holds the rendering of the file.
	Conflict bool
}

type Ingester struct {
	identifier    *identifier.Identifier
	engine        *metadata.Engine
	showService   *shows.Service
	seasonService *seasons.Service
	entryService  *entries.Service
	trackService  *tracks.Service
	videoService  *videos.Service
}

func New(db bun.IDB, id *identifier.Identifier, engine *metadata.Engine) *Ingester {
	return &Ingester{
		identifier:    id,
		engine:        engine,
		showService:   shows.NewService(db),
		seasonService: seasons.NewService(db),
		entryService:  entries.NewService(db),
		trackService:  tracks.NewService(db),
		videoService:  videos.NewService(db),
	}
}

// Ingest identifies the video at path, makes sure the show, season and entry it
// belongs to exist, and registers it against that entry. Every step is idempotent, so
// a file can be ingested again safely.
func (in *Ingester) Ingest(ctx context.Context, library *models.Library, path string) (*Result, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"path": path, "library_id": library.ID})

	cand, err := in.identifier.Identify(path, library.Roots())
	if errors.Is(err, identifier.ErrUnidentifiable) {
		log.Warn("unidentifiable media, attaching it to an unknown entry")
		return in.ingestUnknown(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	providers := library.ProviderOrder()
	show, created, err := in.showService.FindOrCreateShow(ctx, showSeed(library, cand), in.engine.ShowResolver(providers))
	if err != nil {
		return nil, err
	}
	if created {
		log.Info("show created", logger.Data{"show_id": show.ID, "slug": show.Slug})
	}

	entry, err := in.findOrCreateEntry(ctx, show, cand, providers)
	if err != nil {
		return nil, err
	}

	result, err := in.register(ctx, path, cand.Guess(), entry)
	if err != nil {
		return nil, err
	}
	result.Show = show
	result.ShowCreated = created
	return result, nil
}

// IngestSubtitle stores the external subtitle at path as a track of the entries its
// video is attached to. A subtitle whose video is not registered yet is skipped.
func (in *Ingester) IngestSubtitle(ctx context.Context, path string) ([]*models.Track, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"path": path})

	cand, err := in.identifier.IdentifyTrack(path)
	if err != nil {
		return nil, err
	}

	entryIDs, err := in.videoService.EntryIDsForPathPrefix(ctx, cand.EpisodePath)
	if err != nil {
		return nil, err
	}
	if len(entryIDs) == 0 {
		log.Debug("no video for subtitle")
		return []*models.Track{}, nil
	}

	stored := make([]*models.Track, 0, len(entryIDs))
	for _, entryID := range entryIDs {
		track, err := in.trackService.UpsertExternalTrack(ctx, entryID, cand)
		if err != nil {
			return nil, err
		}
		stored = append(stored, track)
	}
	return stored, nil
}

func (in *Ingester) findOrCreateEntry(ctx context.Context, show *models.Show, cand *identifier.Candidate, providers []string) (*models.Entry, error) {
	seed := &models.Entry{ShowID: &show.ID, Show: show}

	switch {
	case show.IsMovie():
		seed.Kind = models.EntryKindMovie
	case cand.SeasonNumber != nil && cand.EpisodeNumber != nil:
		season, _, err := in.seasonService.FindOrCreateSeason(ctx, &models.Season{
			ShowID:       show.ID,
			Show:         show,
			SeasonNumber: *cand.SeasonNumber,
		}, in.engine.SeasonResolver(providers))
		if err != nil {
			return nil, err
		}
		seed.Kind = models.EntryKindEpisode
		seed.SeasonNumber = &season.SeasonNumber
		seed.EpisodeNumber = cand.EpisodeNumber
	case cand.AbsoluteNumber != nil:
		seed.Kind = models.EntryKindEpisode
		seed.AbsoluteNumber = cand.AbsoluteNumber
	default:
		// Numbers that do not form an episode.
		seed.Kind = models.EntryKindExtra
		seed.Name = &cand.ShowTitle
	}

	entry, _, err := in.entryService.FindOrCreateEntry(ctx, seed, in.engine.EntryResolver(providers))
	return entry, err
}

func (in *Ingester) ingestUnknown(ctx context.Context, path string) (*Result, error) {
	existing, err := in.videoService.RetrieveVideo(ctx, videos.RetrieveVideoOptions{Path: &path})
	if err != nil && !errors.Is(err, errcodes.NotFound("Video")) {
		return nil, err
	}
	if existing != nil && len(existing.Entries) > 0 {
		// Already attached, possibly by hand. Keep its entries.
		result, err := in.register(ctx, path, existing.Guess, nil)
		if err != nil {
			return nil, err
		}
		result.Unknown = true
		return result, nil
	}

	entry, err := in.entryService.CreateUnknownEntry(ctx, path)
	if err != nil {
		return nil, err
	}
	result, err := in.register(ctx, path, models.Guess{Title: *entry.Name, Kind: models.EntryKindUnknown, From: "identifier"}, entry)
	if err != nil {
		return nil, err
	}
	result.Unknown = true
	return result, nil
}

func (in *Ingester) register(ctx context.Context, path string, guess models.Guess, entry *models.Entry) (*Result, error) {
	seed := videos.SeedVideo{Path: path, Guess: guess}
	if entry != nil {
		seed.For = []videos.Hint{{Slug: &entry.Slug}}
	}

	registered, err := in.videoService.Register(ctx, []videos.SeedVideo{seed})
	if err != nil {
		return nil, err
	}

	result := &Result{Path: path, Entry: entry}
	if len(registered.Conflicts) > 0 {
		result.Conflict = true
		return result, nil
	}
	if len(registered.Videos) > 0 {
		result.Video = registered.Videos[0]
	}
	return result, nil
}

func showSeed(library *models.Library, cand *identifier.Candidate) *models.Show {
	seed := &models.Show{
		Kind:      models.ShowKindSerie,
		Name:      cand.ShowTitle,
		LibraryID: &library.ID,
		Status:    models.ShowStatusUnknown,
	}
	if cand.IsMovie() {
		seed.Kind = models.ShowKindMovie
	}
	if cand.StartYear != nil {
		seed.StartAir = models.YearDate(*cand.StartYear)
	}
	if cand.CollectionName != nil && *cand.CollectionName != "" {
		seed.Collection = &models.Collection{Name: *cand.CollectionName}
	}
	return seed
}

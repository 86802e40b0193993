package worker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/entries"
	"github.com/shishobooks/kino/pkg/joblogs"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/shows"
)

// ProcessRefreshJob runs a show through the metadata providers again, followed by
// each of its seasons and entries. A season or entry that fails to refresh is logged
// and skipped.
func (w *Worker) ProcessRefreshJob(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobRefreshData)
	if !ok {
		return errors.Errorf("unexpected data for refresh job %d", job.ID)
	}

	show, err := w.showService.RetrieveShow(ctx, shows.RetrieveShowOptions{ID: &data.ShowID})
	if err != nil {
		return err
	}

	providers, err := w.providerOrder(ctx, show)
	if err != nil {
		return err
	}

	show, err = w.showService.RefreshShow(ctx, show.ID, w.engine.ShowResolver(providers))
	if err != nil {
		return err
	}
	jobLog.Info("show refreshed", logger.Data{"show_id": show.ID, "slug": show.Slug})

	seasons, err := w.showService.LoadSeasons(ctx, show.ID)
	if err != nil {
		return err
	}
	for _, season := range seasons {
		_, err := w.seasonService.RefreshSeason(ctx, season.ID, w.engine.SeasonResolver(providers))
		if err != nil {
			jobLog.Warn("season refresh failed", logger.Data{"season_id": season.ID, "error": err.Error()})
		}
	}

	showEntries, err := w.entryService.ListEntries(ctx, entries.ListEntriesOptions{ShowID: &show.ID})
	if err != nil {
		return err
	}
	for _, entry := range showEntries {
		_, err := w.entryService.RefreshEntry(ctx, entry.ID, w.engine.EntryResolver(providers))
		if err != nil {
			jobLog.Warn("entry refresh failed", logger.Data{"entry_id": entry.ID, "error": err.Error()})
		}
	}

	jobLog.Info("finished refresh", logger.Data{"seasons": len(seasons), "entries": len(showEntries)})
	return nil
}

// providerOrder is the provider order of the library the show belongs to. A show
// without a library uses the default order.
func (w *Worker) providerOrder(ctx context.Context, show *models.Show) ([]string, error) {
	if show.LibraryID == nil {
		return nil, nil
	}
	library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: show.LibraryID})
	if err != nil {
		return nil, err
	}
	return library.ProviderOrder(), nil
}

package worker

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/models"
)

// startScheduler queues a scan of every library each sync_interval_minutes. A zero
// interval disables scheduled scans.
func (w *Worker) startScheduler() error {
	if w.config.SyncIntervalMinutes <= 0 {
		w.log.Info("scheduled scans disabled")
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return errors.WithStack(err)
	}

	interval := time.Duration(w.config.SyncIntervalMinutes) * time.Minute
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.scheduledScan),
		gocron.WithName("library-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.WithStack(err)
	}

	s.Start()
	w.scheduler = s
	w.log.Info("scheduled scans enabled", logger.Data{"interval": interval.String()})
	return nil
}

func (w *Worker) scheduledScan() {
	ctx := w.log.WithContext(context.Background())
	queued, err := w.EnqueueScans(ctx)
	if err != nil {
		w.log.Err(err).Error("enqueue scans error")
		return
	}
	if len(queued) > 0 {
		w.log.Info("scans queued", logger.Data{"library_ids": queued})
	}
}

// EnqueueScans creates a pending scan job for every library that has no scan pending
// or running, and returns the ids of the libraries it queued.
func (w *Worker) EnqueueScans(ctx context.Context) ([]int, error) {
	libs, err := w.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		return nil, err
	}

	queued := []int{}
	for _, library := range libs {
		libraryID := library.ID
		active, err := w.jobService.HasActiveJob(ctx, models.JobTypeScan, &libraryID)
		if err != nil {
			return nil, err
		}
		if active {
			continue
		}

		err = w.jobService.CreateJob(ctx, &models.Job{
			Type:       models.JobTypeScan,
			Status:     models.JobStatusPending,
			DataParsed: &models.JobScanData{LibraryID: libraryID},
			LibraryID:  &libraryID,
		})
		if err != nil {
			return nil, err
		}
		queued = append(queued, libraryID)
	}
	return queued, nil
}

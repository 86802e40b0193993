package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/config"
	"github.com/shishobooks/kino/pkg/entries"
	"github.com/shishobooks/kino/pkg/ingest"
	"github.com/shishobooks/kino/pkg/joblogs"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/seasons"
	"github.com/shishobooks/kino/pkg/shows"
	"github.com/shishobooks/kino/pkg/videos"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

type processFunc func(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error

type Worker struct {
	config *config.Config
	log    logger.Logger

	processFuncs map[string]processFunc

	ingester *ingest.Ingester
	engine   *metadata.Engine

	entryService   *entries.Service
	jobService     *jobs.Service
	jobLogService  *joblogs.Service
	libraryService *libraries.Service
	seasonService  *seasons.Service
	showService    *shows.Service
	videoService   *videos.Service

	scheduler gocron.Scheduler

	queue          chan *models.Job
	shutdown       chan struct{}
	doneFetching   chan struct{}
	doneProcessing chan struct{}
}

func New(cfg *config.Config, db *bun.DB, ingester *ingest.Ingester, engine *metadata.Engine) *Worker {
	w := &Worker{
		config: cfg,
		log:    logger.New(),

		ingester: ingester,
		engine:   engine,

		entryService:   entries.NewService(db),
		jobService:     jobs.NewService(db),
		jobLogService:  joblogs.NewService(db),
		libraryService: libraries.NewService(db),
		seasonService:  seasons.NewService(db),
		showService:    shows.NewService(db),
		videoService:   videos.NewService(db),

		queue:          make(chan *models.Job, cfg.WorkerProcesses),
		shutdown:       make(chan struct{}),
		doneFetching:   make(chan struct{}),
		doneProcessing: make(chan struct{}, cfg.WorkerProcesses),
	}

	w.processFuncs = map[string]processFunc{
		models.JobTypeScan:    w.ProcessScanJob,
		models.JobTypeRefresh: w.ProcessRefreshJob,
	}

	return w
}

func (w *Worker) Start() error {
	err := w.startScheduler()
	if err != nil {
		return err
	}

	go w.fetchJobs()
	for i := 0; i < w.config.WorkerProcesses; i++ {
		go w.processJobs()
	}
	return nil
}

func (w *Worker) fetchJobs() {
	duration := 5 * time.Second
	timer := time.NewTimer(duration)

	for {
		select {
		case <-w.shutdown:
			// We're shutting down, so stop adding more jobs to the queue.
			w.doneFetching <- struct{}{}
			return
		case <-timer.C:
			j, err := w.jobService.ListJobs(context.Background(), jobs.ListJobsOptions{
				Limit:              pointerutil.Int(1),
				Statuses:           []string{models.JobStatusPending, models.JobStatusInProgress},
				ProcessIDToExclude: &processID,
			})
			if err != nil {
				w.log.Err(err).Error("list jobs error")
				timer.Reset(duration)
				continue
			}
			for _, job := range j {
				select {
				case w.queue <- job:
				case <-w.shutdown:
					w.doneFetching <- struct{}{}
					return
				}
			}
			timer.Reset(duration)
		}
	}
}

func (w *Worker) processJobs() {
	for {
		select {
		case <-w.shutdown:
			w.doneProcessing <- struct{}{}
			return
		case job := <-w.queue:
			w.processJob(job)
		}
	}
}

func (w *Worker) processJob(job *models.Job) {
	// Prep the context to be passed down to the process function.
	id, err := uuid.NewRandom()
	if err != nil {
		w.log.Err(err).Error("new uuid error")
		return
	}
	log := w.log.ID(id.String()).Root(logger.Data{"job_id": job.ID, "type": job.Type, "process_id": processID})
	ctx := log.WithContext(context.Background())
	jobLog := w.jobLogService.NewJobLogger(ctx, job.ID, log)

	// Update job to be in progress and claimed by this process.
	job.Status = models.JobStatusInProgress
	job.ProcessID = &processID

	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status", "process_id"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
		return
	}

	job.Status = models.JobStatusCompleted
	err = w.run(ctx, job, jobLog)
	if err != nil {
		jobLog.Error("process error", err, nil)
		job.Status = models.JobStatusFailed
	}

	// Update the final status so that it's not picked up anymore.
	err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{
		Columns: []string{"status", "progress"},
	})
	if err != nil {
		log.Err(err).Error("update job error")
	}
}

// run finds and invokes the process function of the job, turning a panic into an
// error.
func (w *Worker) run(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) (err error) {
	fn, ok := w.processFuncs[job.Type]
	if !ok {
		return errors.Errorf("can't find process function for type %q", job.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
			jobLog.Fatal("process panicked", err, nil)
		}
	}()

	return fn(ctx, job, jobLog)
}

func (w *Worker) Shutdown() {
	close(w.shutdown)

	if w.scheduler != nil {
		err := w.scheduler.Shutdown()
		if err != nil {
			w.log.Err(err).Error("scheduler shutdown error")
		}
	}

	<-w.doneFetching
	for i := 0; i < w.config.WorkerProcesses; i++ {
		<-w.doneProcessing
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}

package worker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/kino/pkg/joblogs"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/libraries"
	"github.com/shishobooks/kino/pkg/models"
)

const (
	fileKindVideo    = "video"
	fileKindSubtitle = "subtitle"
)

var extensionKinds = map[string]string{
	".avi":  fileKindVideo,
	".flv":  fileKindVideo,
	".m2ts": fileKindVideo,
	".m4v":  fileKindVideo,
	".mkv":  fileKindVideo,
	".mov":  fileKindVideo,
	".mp4":  fileKindVideo,
	".mpeg": fileKindVideo,
	".mpg":  fileKindVideo,
	".ogv":  fileKindVideo,
	".ts":   fileKindVideo,
	".webm": fileKindVideo,
	".wmv":  fileKindVideo,

	".ass": fileKindSubtitle,
	".srt": fileKindSubtitle,
	".ssa": fileKindSubtitle,
	".sub": fileKindSubtitle,
	".vtt": fileKindSubtitle,
}

// Files with these extensions are never media, so they are not sniffed.
var ignoredExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {},
	".nfo": {}, ".txt": {}, ".xml": {}, ".json": {}, ".db": {}, ".part": {},
}

var subtitleMimeTypes = []string{"text/vtt", "application/x-subrip"}

// scanFiles are the media files found under the roots of a library.
type scanFiles struct {
	videos    []string
	subtitles []string
	// walked lists the roots that could be read. Videos are only deleted under them.
	walked []string
}

func (w *Worker) ProcessScanJob(ctx context.Context, job *models.Job, jobLog *joblogs.JobLogger) error {
	data, ok := job.DataParsed.(*models.JobScanData)
	if !ok {
		return errors.Errorf("unexpected data for scan job %d", job.ID)
	}

	library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &data.LibraryID})
	if err != nil {
		return err
	}

	jobLog.Info("starting scan", logger.Data{"library_id": library.ID, "roots": library.Roots()})

	files := w.findFiles(ctx, library, jobLog)
	total := len(files.videos) + len(files.subtitles)

	var unknown, conflicts, failed int
	for i, path := range files.videos {
		result, err := w.ingester.Ingest(ctx, library, path)
		switch {
		case err != nil:
			failed++
			jobLog.Error("ingest failed", err, logger.Data{"path": path})
		case result.Conflict:
			conflicts++
			jobLog.Warn("another file already holds this rendering", logger.Data{"path": path})
		case result.Unknown:
			unknown++
			jobLog.Warn("unidentifiable media", logger.Data{"path": path})
		}
		w.reportProgress(ctx, job, i+1, total)
	}

	// Subtitles go last so that the videos they belong to are registered.
	for i, path := range files.subtitles {
		_, err := w.ingester.IngestSubtitle(ctx, path)
		if err != nil {
			failed++
			jobLog.Warn("subtitle ingest failed", logger.Data{"path": path, "error": err.Error()})
		}
		w.reportProgress(ctx, job, len(files.videos)+i+1, total)
	}

	removed, err := w.removeMissing(ctx, files)
	if err != nil {
		return err
	}

	jobLog.Info("finished scan", logger.Data{
		"videos":    len(files.videos),
		"subtitles": len(files.subtitles),
		"unknown":   unknown,
		"conflicts": conflicts,
		"failed":    failed,
		"removed":   len(removed),
	})
	return nil
}

// findFiles walks every root of the library. A root that cannot be read is logged
// and skipped.
func (w *Worker) findFiles(ctx context.Context, library *models.Library, jobLog *joblogs.JobLogger) *scanFiles {
	files := &scanFiles{}

	for _, root := range library.Roots() {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				jobLog.Warn("can't read path", logger.Data{"path": path, "error": err.Error()})
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") && path != root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			switch classify(ctx, path) {
			case fileKindVideo:
				files.videos = append(files.videos, path)
			case fileKindSubtitle:
				files.subtitles = append(files.subtitles, path)
			}
			return nil
		})
		if err != nil {
			jobLog.Warn("can't walk library root", logger.Data{"root": root, "error": err.Error()})
			continue
		}
		files.walked = append(files.walked, root)
	}

	return files
}

// classify tells videos and subtitles apart by extension, sniffing the content of
// files whose extension is not known.
func classify(ctx context.Context, path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}
	if _, ok := ignoredExtensions[ext]; ok {
		return ""
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		logger.FromContext(ctx).Warn("can't detect the mime type of a file", logger.Data{"path": path, "err": err.Error()})
		return ""
	}
	if strings.HasPrefix(mtype.String(), "video/") {
		return fileKindVideo
	}
	for _, t := range subtitleMimeTypes {
		if mtype.Is(t) {
			return fileKindSubtitle
		}
	}
	return ""
}

// removeMissing deletes the videos stored under the walked roots that the walk did
// not find and that are gone from disk.
func (w *Worker) removeMissing(ctx context.Context, files *scanFiles) ([]string, error) {
	found := make(map[string]struct{}, len(files.videos))
	for _, path := range files.videos {
		found[path] = struct{}{}
	}

	missing := []string{}
	for _, root := range files.walked {
		stored, err := w.videoService.ListPaths(ctx, strings.TrimRight(root, "/")+"/")
		if err != nil {
			return nil, err
		}
		for _, path := range stored {
			if _, ok := found[path]; ok {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				continue
			}
			missing = append(missing, path)
		}
	}
	if len(missing) == 0 {
		return []string{}, nil
	}

	return w.videoService.Delete(ctx, missing)
}

func (w *Worker) reportProgress(ctx context.Context, job *models.Job, done, total int) {
	if total == 0 {
		return
	}
	progress := done * 100 / total
	if progress == job.Progress {
		return
	}
	job.Progress = progress
	err := w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}})
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("update job progress error")
	}
}

package joblogs

import (
	"strings"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/kino/pkg/jobs"
	"github.com/shishobooks/kino/pkg/models"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJob(t *testing.T, svc *jobs.Service) *models.Job {
	t.Helper()
	job := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusInProgress,
		DataParsed: &models.JobScanData{LibraryID: 1},
	}
	require.NoError(t, svc.CreateJob(testutils.Context(), job))
	return job
}

func TestJobLogger_ProviderColumn(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	job := newJob(t, jobs.NewService(db))
	svc := NewService(db)

	jl := svc.NewJobLogger(ctx, job.ID, logger.New())
	jl.Warn("provider failed", logger.Data{"provider": "tmdb", "kind": "show"})
	jl.Info("scan started", nil)

	logs, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	require.NotNil(t, logs[0].Provider)
	assert.Equal(t, "tmdb", *logs[0].Provider)
	require.NotNil(t, logs[0].Data)
	assert.Equal(t, `{"kind":"show"}`, *logs[0].Data)
	assert.Nil(t, logs[1].Provider)
	assert.Nil(t, logs[1].Data)
}

func TestListJobLogs_Filters(t *testing.T) {
	db := testutils.NewDB(t)
	ctx := testutils.Context()
	job := newJob(t, jobs.NewService(db))
	svc := NewService(db)

	jl := svc.NewJobLogger(ctx, job.ID, logger.New())
	jl.Info("identified show", nil)
	jl.Warn("could not identify file", logger.Data{"path": "/media/x.mkv"})
	jl.Warn("provider timed out", logger.Data{"provider": "script-anidb"})

	logs, err := svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: job.ID, Levels: []string{models.JobLogLevelWarn}})
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: job.ID, Provider: pointerutil.String("script-anidb")})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "provider timed out", logs[0].Message)

	logs, err = svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: job.ID, Search: pointerutil.String("identify")})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "could not identify file", logs[0].Message)

	logs, err = svc.ListJobLogs(ctx, ListJobLogsOptions{JobID: job.ID, AfterID: &logs[0].ID})
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestTruncateMiddle(t *testing.T) {
	assert.Equal(t, "short", truncateMiddle("short", 10))

	long := strings.Repeat("a", 20) + strings.Repeat("b", 20)
	out := truncateMiddle(long, 15)
	assert.Equal(t, "aaaaa ... bbbbb", out)
}

package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesInChunks(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakePruner{batches: []int64{3, 3, 1}}
	job := newOutboxRetentionJob(t, repo, 0, 3)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 3, repo.calls)
	assert.True(t, repo.cutoff.Equal(now.AddDate(0, 0, -defaultRetentionDays)))
	assert.Equal(t, []int{3, 3, 3}, repo.limits)
}

func TestOutboxRetentionJobHonoursConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakePruner{}
	job := newOutboxRetentionJob(t, repo, 7, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, repo.cutoff.Equal(now.AddDate(0, 0, -7)))
	assert.Equal(t, []int{defaultRetentionChunk}, repo.limits)
}

func TestOutboxRetentionJobReportsParkedRows(t *testing.T) {
	buf := &bytes.Buffer{}
	repo := &fakePruner{parked: 4}
	job := newOutboxRetentionJob(t, repo, 0, 0)
	job.logg = logger.New(logger.Options{ServiceName: "test", Output: buf})

	require.NoError(t, job.Run(context.Background()))
	assert.Contains(t, buf.String(), `"rows_parked":4`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakePruner{batches: []int64{2}, err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0, 2)

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "after 2 rows")
}

func TestOutboxRetentionJobRequiresDeps(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Repository: &fakePruner{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.New(logger.Options{})})
	assert.Error(t, err)
}

func newOutboxRetentionJob(t *testing.T, repo *fakePruner, retention, chunk int) *outboxRetentionJob {
	t.Helper()
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}}),
		Repository: repo,
		Retention:  retention,
		Chunk:      chunk,
	})
	require.NoError(t, err)
	return job.(*outboxRetentionJob)
}

// fakePruner returns batches in order, then zero; err is returned alongside the last batch.
type fakePruner struct {
	batches []int64
	err     error
	parked  int64

	calls  int
	cutoff time.Time
	limits []int
}

func (f *fakePruner) DeletePublishedBefore(_ context.Context, cutoff time.Time, limit int) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	f.limits = append(f.limits, limit)
	if len(f.batches) == 0 {
		return 0, f.err
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	if len(f.batches) == 0 {
		return n, f.err
	}
	return n, nil
}

func (f *fakePruner) CountParked(context.Context) (int64, error) {
	return f.parked, nil
}

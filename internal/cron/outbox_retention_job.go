package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const (
	defaultRetentionDays  = 30
	defaultRetentionChunk = 1000
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	CountParked(ctx context.Context) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository outboxPruner
	// Retention is in days.
	Retention int
	// Chunk bounds each DELETE so a large backlog never holds locks for long.
	Chunk int
}

// NewOutboxRetentionJob prunes delivered outbox rows older than the retention
// window. Parked rows stay until someone looks at them; the job only reports them.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: params.Retention,
		chunk:     params.Chunk,
		now:       time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultRetentionDays
	}
	if job.chunk <= 0 {
		job.chunk = defaultRetentionChunk
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxPruner
	retention int
	chunk     int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)

	var total int64
	for {
		n, err := j.repo.DeletePublishedBefore(ctx, cutoff, j.chunk)
		total += n
		if err != nil {
			return fmt.Errorf("outbox retention after %d rows: %w", total, err)
		}
		if n < int64(j.chunk) {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	fields := map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   total,
	}
	parked, err := j.repo.CountParked(ctx)
	if err != nil {
		return fmt.Errorf("count parked outbox rows: %w", err)
	}
	fields["rows_parked"] = parked
	logCtx := j.logg.WithFields(ctx, fields)
	if parked > 0 {
		j.logg.Warn(logCtx, "outbox retention done, parked events need attention")
		return nil
	}
	j.logg.Info(logCtx, "outbox retention done")
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const defaultStuckLetterBatch = 200

type StuckLetterJobParams struct {
	Logger  *logger.Logger
	Letters stuckLetterFailer
	// After is how long a letter may stay in generating; it must outlast the LLM timeout.
	After     time.Duration
	BatchSize int
}

type stuckLetterFailer interface {
	FailStuck(ctx context.Context, after time.Duration, limit int) (int, error)
}

func NewStuckLetterJob(params StuckLetterJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Letters == nil {
		return nil, fmt.Errorf("letter sweeper required")
	}
	if params.After <= 0 {
		return nil, fmt.Errorf("stuck letter threshold must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultStuckLetterBatch
	}
	return &stuckLetterJob{logg: params.Logger, letters: params.Letters, after: params.After, batch: batch}, nil
}

type stuckLetterJob struct {
	logg    *logger.Logger
	letters stuckLetterFailer
	after   time.Duration
	batch   int
}

func (j *stuckLetterJob) Name() string { return "stuck-letters" }

func (j *stuckLetterJob) Run(ctx context.Context) error {
	failed, err := j.letters.FailStuck(ctx, j.after, j.batch)
	logCtx := j.logg.WithFields(ctx, map[string]any{"failed": failed, "after": j.after.String()})
	if err != nil {
		return fmt.Errorf("fail stuck letters: %w", err)
	}
	if failed > 0 {
		j.logg.Warn(logCtx, "failed letters stuck in generating")
		return nil
	}
	j.logg.Debug(logCtx, "no stuck letters")
	return nil
}

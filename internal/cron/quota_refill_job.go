package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

const (
	refillBatchSize = 200
	refillMaxRounds = 50
)

type QuotaRefillJobParams struct {
	Logger        *logger.Logger
	Subscriptions quotaRefiller
	BatchSize     int
}

type quotaRefiller interface {
	RefillDue(ctx context.Context, limit int) (int, error)
}

// NewQuotaRefillJob restores monthly letter allowances on subscriptions whose refill date has passed.
// Per-request lazy refills cover users who act before the sweep runs.
func NewQuotaRefillJob(params QuotaRefillJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = refillBatchSize
	}
	return &quotaRefillJob{logg: params.Logger, subs: params.Subscriptions, batch: batch}, nil
}

type quotaRefillJob struct {
	logg  *logger.Logger
	subs  quotaRefiller
	batch int
}

func (j *quotaRefillJob) Name() string { return "quota-refill" }

func (j *quotaRefillJob) Run(ctx context.Context) error {
	total := 0
	rounds := 0
	for ; rounds < refillMaxRounds; rounds++ {
		n, err := j.subs.RefillDue(ctx, j.batch)
		total += n
		if err != nil {
			return fmt.Errorf("quota refill after %d refills: %w", total, err)
		}
		if n < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"refilled": total,
		"rounds":   rounds + 1,
	})
	j.logg.Info(logCtx, "quota refill sweep complete")
	return nil
}

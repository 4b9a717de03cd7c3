package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
)

type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions subscriptionExpirer
}

type subscriptionExpirer interface {
	ExpireLapsed(ctx context.Context) (int, error)
}

func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	return &subscriptionExpiryJob{logg: params.Logger, subs: params.Subscriptions}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	subs subscriptionExpirer
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.subs.ExpireLapsed(ctx)
	logCtx := j.logg.WithField(ctx, "expired", expired)
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}
	j.logg.Info(logCtx, "subscription expiry sweep complete")
	return nil
}

package cron

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
)

const (
	defaultInterval     = time.Hour
	defaultCycleTimeout = 10 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval is the tick between cycles. Each registered job decides
	// whether it is due on a given tick.
	Interval time.Duration
	// CycleTimeout caps one cycle. It defaults to the lock TTL when the lock
	// exposes one, so no job keeps running after the lock has lapsed.
	CycleTimeout time.Duration
	Now          func() time.Time
}

// Service ticks through due jobs while holding the cluster-wide lock.
type Service struct {
	logg         *logger.Logger
	registry     *Registry
	lock         Lock
	metrics      *metrics.CronJobMetrics
	interval     time.Duration
	cycleTimeout time.Duration
	now          func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	timeout := params.CycleTimeout
	if timeout <= 0 {
		timeout = defaultCycleTimeout
		if ttl, ok := params.Lock.(interface{ TTL() time.Duration }); ok && ttl.TTL() > 0 {
			timeout = ttl.TTL()
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		logg:         params.Logger,
		registry:     registry,
		lock:         params.Lock,
		metrics:      params.Metrics,
		interval:     interval,
		cycleTimeout: timeout,
		now:          now,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.runCycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Service) runCycle(ctx context.Context) {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "cron lock acquire failed", err)
		return
	}
	if !locked {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "another cron instance holds the lock; skipping cycle")
		return
	}
	defer func() {
		// Release even when shutdown canceled ctx, otherwise the next
		// instance waits out the full TTL.
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron lock release failed", err)
		}
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	started := s.now()
	due := s.registry.due(started)
	for i, e := range due {
		if cycleCtx.Err() != nil {
			s.logg.Warn(s.logg.WithField(ctx, "deferred_jobs", len(due)-i), "cron cycle out of time")
			return
		}
		if s.runJob(cycleCtx, e.job) {
			e.lastRun = started
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	start := s.now()
	err := job.Run(jobCtx)
	end := s.now()
	s.metrics.ObserveRun(job.Name(), end.Sub(start), end, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", end.Sub(start).Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return false
	}
	s.logg.Info(jobCtx, "job completed")
	return true
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/db/models"
	"github.com/angelmondragon/ttml-backend/pkg/logger"
	"github.com/angelmondragon/ttml-backend/pkg/metrics"
	"github.com/angelmondragon/ttml-backend/pkg/outbox"
)

const (
	publishTimeout = 15 * time.Second
	maxIdleBackoff = 10 * time.Second
)

type outboxStore interface {
	FetchUnpublished(ctx context.Context, limit int) ([]models.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause error, maxAttempts int) error
}

// publisher is the slice of *pubsub.Publisher the relay uses.
type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type RelayParams struct {
	Config    config.OutboxConfig
	Topic     string
	Logger    *logger.Logger
	Store     outboxStore
	Publisher publisher
	Metrics   *metrics.OutboxMetrics
	// Readiness is pinged once before the loop starts.
	Readiness map[string]pinger
}

// Relay moves committed outbox rows to the domain topic. Each poll publishes
// the whole batch before waiting on any result so the client can batch sends.
type Relay struct {
	store       outboxStore
	pub         publisher
	logg        *logger.Logger
	metrics     *metrics.OutboxMetrics
	readiness   map[string]pinger
	topic       string
	batchSize   int
	maxAttempts int
	poll        time.Duration
	now         func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.Publisher == nil:
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		store:       p.Store,
		pub:         p.Publisher,
		logg:        p.Logger,
		metrics:     p.Metrics,
		readiness:   p.Readiness,
		topic:       p.Topic,
		batchSize:   p.Config.BatchSize,
		maxAttempts: p.Config.MaxAttempts,
		poll:        time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
		now:         time.Now,
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 10
	}
	if r.poll <= 0 {
		r.poll = 500 * time.Millisecond
	}
	return r, nil
}

// Run polls until ctx is cancelled. An empty poll or a failed one backs off
// exponentially up to maxIdleBackoff; a full batch polls again immediately.
func (r *Relay) Run(ctx context.Context) error {
	for name, dep := range r.readiness {
		if err := dep.Ping(ctx); err != nil {
			return fmt.Errorf("%s not ready: %w", name, err)
		}
	}

	wait := r.poll
	for {
		n, err := r.relayBatch(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			wait = min(wait*2, maxIdleBackoff)
		case n == r.batchSize:
			wait = r.poll
			if ctx.Err() == nil {
				continue
			}
		case n > 0:
			wait = r.poll
		default:
			wait = min(wait*2, maxIdleBackoff)
		}

		timer := time.NewTimer(jitter(wait))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type inflight struct {
	row    models.OutboxEvent
	env    outbox.Envelope
	result publishResult
}

// relayBatch returns how many rows it polled.
func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	rows, err := r.store.FetchUnpublished(ctx, r.batchSize)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	started := r.now()
	defer func() { r.metrics.ObserveBatch(r.now().Sub(started)) }()

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	sent := make([]inflight, 0, len(rows))
	for _, row := range rows {
		env, err := outbox.DecodeEnvelope(row.Payload)
		if err != nil {
			// Nothing downstream could read it either, so park it on the first try.
			if err := r.fail(ctx, row, err, 1); err != nil {
				return len(rows), err
			}
			continue
		}
		msg := &gcppubsub.Message{Data: row.Payload, Attributes: env.Attributes()}
		sent = append(sent, inflight{row: row, env: env, result: r.pub.Publish(publishCtx, msg)})
	}

	for _, f := range sent {
		if f.result == nil {
			err = fmt.Errorf("no publish result for topic %s", r.topic)
		} else {
			_, err = f.result.Get(publishCtx)
		}
		if err != nil {
			if err := r.fail(ctx, f.row, err, r.maxAttempts); err != nil {
				return len(rows), err
			}
			continue
		}
		if err := r.store.MarkPublished(ctx, f.row.ID); err != nil {
			return len(rows), fmt.Errorf("mark published %s: %w", f.row.ID, err)
		}
		r.metrics.Published(string(f.row.EventType), r.now().Sub(f.env.OccurredAt))
		r.logg.Debug(r.logg.WithFields(ctx, f.row.LogFields()), "outbox event published")
	}
	return len(rows), nil
}

func (r *Relay) fail(ctx context.Context, row models.OutboxEvent, cause error, maxAttempts int) error {
	terminal := row.ParksOnFailure(maxAttempts)
	r.metrics.Failed(string(row.EventType), terminal)

	fields := row.LogFields()
	fields["error"] = cause.Error()
	fields["terminal"] = terminal
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed")

	if err := r.store.MarkFailed(ctx, row.ID, cause, maxAttempts); err != nil {
		return fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return nil
}

// jitter spreads replicas by adding up to a quarter of d.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(d/4+1)
}

// pubsubPublisher adapts *pubsub.Publisher to the publisher interface.
type pubsubPublisher struct {
	p *gcppubsub.Publisher
}

func (a pubsubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return a.p.Publish(ctx, msg)
}

package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	refill := &stubJob{name: "quota-refill"}
	expiry := &stubJob{name: "subscription-expiry"}
	require.NoError(t, registry.Register(refill))
	require.NoError(t, registry.Register(expiry))
	require.Error(t, registry.Register(&stubJob{name: "quota-refill"}))
	require.Error(t, registry.Register(nil))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, refill, jobs[0])
	assert.Same(t, expiry, jobs[1])

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "callers get a copy")
}

func TestRegistryDueHonoursCadence(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubJob{name: "quota-refill"}))
	require.NoError(t, registry.RegisterEvery(&stubJob{name: "outbox-retention"}, 24*time.Hour))

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	due := registry.due(now)
	require.Len(t, due, 2, "everything is due on the first cycle")
	for _, e := range due {
		e.lastRun = now
	}

	due = registry.due(now.Add(time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, "quota-refill", due[0].job.Name())

	assert.Len(t, registry.due(now.Add(24*time.Hour)), 2)
}

package cron

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Job is one maintenance task. A failed job is retried on the next cycle, so
// Run must be safe to repeat.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type entry struct {
	job     Job
	every   time.Duration
	lastRun time.Time
}

// Registry keeps jobs in registration order along with how often each runs.
type Registry struct {
	entries []*entry
	names   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Register schedules job on every cycle.
func (r *Registry) Register(job Job) error {
	return r.RegisterEvery(job, 0)
}

// RegisterEvery schedules job at most once per every.
func (r *Registry) RegisterEvery(job Job, every time.Duration) error {
	if job == nil {
		return errors.New("job is required")
	}
	if _, dup := r.names[job.Name()]; dup {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	r.names[job.Name()] = struct{}{}
	r.entries = append(r.entries, &entry{job: job, every: every})
	return nil
}

func (r *Registry) Jobs() []Job {
	jobs := make([]Job, 0, len(r.entries))
	for _, e := range r.entries {
		jobs = append(jobs, e.job)
	}
	return jobs
}

func (r *Registry) due(now time.Time) []*entry {
	var out []*entry
	for _, e := range r.entries {
		if e.lastRun.IsZero() || e.every <= 0 || !now.Before(e.lastRun.Add(e.every)) {
			out = append(out, e)
		}
	}
	return out
}

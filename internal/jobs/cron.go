package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler fires jobs on cron expressions and hands them to the worker pool.
type Scheduler struct {
	cron   *cron.Cron
	worker *Worker

	mu      sync.RWMutex
	entries map[cron.EntryID]scheduled
}

type scheduled struct {
	name string
	spec string
}

// ScheduledEntry describes a registered cron job
type ScheduledEntry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// NewScheduler creates a scheduler evaluating specs in loc (nil means UTC).
func NewScheduler(w *Worker, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		worker:  w,
		entries: make(map[cron.EntryID]scheduled),
	}
}

// Add registers job under a standard five-field cron spec.
func (s *Scheduler) Add(name, spec string, job Job) error {
	id, err := s.cron.AddFunc(spec, func() {
		s.worker.Enqueue(name, job)
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[id] = scheduled{name: name, spec: spec}
	s.mu.Unlock()
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for running triggers, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries lists the registered jobs ordered by next run.
func (s *Scheduler) Entries() []ScheduledEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScheduledEntry, 0, len(s.entries))
	for _, e := range s.cron.Entries() {
		meta, ok := s.entries[e.ID]
		if !ok {
			continue
		}
		next := e.Next
		if next.IsZero() {
			next = e.Schedule.Next(time.Now().In(s.cron.Location()))
		}
		out = append(out, ScheduledEntry{Name: meta.name, Spec: meta.spec, Next: next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}

// Trigger enqueues the named job immediately. It returns false when no job has that name.
func (s *Scheduler) Trigger(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, meta := range s.entries {
		if meta.name == name {
			s.cron.Entry(id).WrappedJob.Run()
			return true
		}
	}
	return false
}

// Package clock provides named interval clocks for the simulation ticks. In
// production every job runs off a real time.Ticker; tests advance virtual
// time manually and get the exact same firing order.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

type job struct {
	name     string
	interval time.Duration
	fn       func()
	due      time.Duration // next virtual firing offset
	order    int
}

// Scheduler runs a set of named periodic jobs.
type Scheduler struct {
	mu      sync.Mutex
	jobs    []*job
	elapsed time.Duration
	running bool
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every registers a named job firing once per interval. Registration order
// breaks ties when two jobs come due at the same virtual instant.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) {
	if interval <= 0 {
		panic("clock: interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, &job{
		name:     name,
		interval: interval,
		fn:       fn,
		due:      s.elapsed + interval,
		order:    len(s.jobs),
	})
}

// Run drives every job off a real ticker until ctx is cancelled. Jobs fire on
// their own goroutines; the callees are expected to serialize their own
// state.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	jobs := append([]*job(nil), s.jobs...)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j *job) {
			defer wg.Done()
			ticker := time.NewTicker(j.interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					j.fn()
				case <-ctx.Done():
					return
				}
			}
		}(j)
	}
	wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Advance moves virtual time forward by d, firing every due job in
// chronological order. Only for tests; never mix with Run.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.elapsed + d
	for {
		next := s.nextDueLocked(target)
		if next == nil {
			break
		}
		s.elapsed = next.due
		next.due += next.interval
		// Fire without the lock so a job may register further jobs.
		s.mu.Unlock()
		next.fn()
		s.mu.Lock()
	}
	s.elapsed = target
}

func (s *Scheduler) nextDueLocked(target time.Duration) *job {
	candidates := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.due <= target {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].due != candidates[k].due {
			return candidates[i].due < candidates[k].due
		}
		return candidates[i].order < candidates[k].order
	})
	return candidates[0]
}

// Elapsed returns total virtual time advanced. Zero under Run.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

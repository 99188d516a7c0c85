package service

import (
	"sort"
	"sync"
)

// DefaultRecentRuns is how many runs a ResultTracker keeps for listing.
const DefaultRecentRuns = 100

// ResultTracker keeps the latest run per source and a bounded list of recent
// runs for the HTTP endpoints.
type ResultTracker struct {
	mu       sync.RWMutex
	latest   map[string]*Run
	recent   []*Run // oldest first
	capacity int
}

// NewResultTracker creates a tracker holding DefaultRecentRuns runs
func NewResultTracker() *ResultTracker {
	return NewResultTrackerWithCapacity(DefaultRecentRuns)
}

// NewResultTrackerWithCapacity creates a tracker holding up to capacity recent runs
func NewResultTrackerWithCapacity(capacity int) *ResultTracker {
	if capacity < 1 {
		capacity = 1
	}
	return &ResultTracker{
		latest:   make(map[string]*Run),
		capacity: capacity,
	}
}

// Update records run as the latest for its source
func (t *ResultTracker) Update(run *Run) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest[run.Source] = run
	t.recent = append(t.recent, run)
	if over := len(t.recent) - t.capacity; over > 0 {
		t.recent = append(t.recent[:0:0], t.recent[over:]...)
	}
}

// Latest returns a copy of the latest run for source
func (t *ResultTracker) Latest(source string) (*Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.latest[source]
	if !ok {
		return nil, false
	}
	c := *run
	return &c, true
}

// Find returns a copy of a recent run by id
func (t *ResultTracker) Find(id string) (*Run, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, run := range t.recent {
		if run.ID == id {
			c := *run
			return &c, true
		}
	}
	return nil, false
}

// Recent returns up to limit recent runs, newest first. limit <= 0 returns all.
func (t *ResultTracker) Recent(limit int) []*Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.recent)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*Run, 0, n)
	for i := len(t.recent) - 1; i >= 0 && len(out) < n; i-- {
		c := *t.recent[i]
		out = append(out, &c)
	}
	return out
}

// Sources returns the sources with at least one run, sorted
func (t *ResultTracker) Sources() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.latest))
	for id := range t.latest {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasResults returns true if any run has been recorded
func (t *ResultTracker) HasResults() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.latest) > 0
}

// Clear forgets the latest run of source
func (t *ResultTracker) Clear(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.latest, source)
}

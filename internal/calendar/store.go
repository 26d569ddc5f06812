package calendar

import (
	"context"
	"slices"
	"sync"
)

// Store persists per-owner date buckets.
type Store interface {
	// Update loads the buckets of dates, lets fn edit them in place and writes them back
	// atomically. Buckets left empty are removed. fn may run more than once.
	Update(ctx context.Context, owner string, dates []string, fn func(buckets map[string][]Event) error) error
	// Range returns the non-empty buckets with from <= date <= to.
	Range(ctx context.Context, owner, from, to string) (map[string][]Event, error)
	// SeriesDates lists the dates holding at least one event of seriesID.
	SeriesDates(ctx context.Context, owner, seriesID string) ([]string, error)
}

// MemoryStore keeps buckets in process memory. It backs tests and single-node dev runs.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: map[string]map[string][]Event{}}
}

func (m *MemoryStore) Update(ctx context.Context, owner string, dates []string, fn func(map[string][]Event) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	days := m.buckets[owner]
	work := make(map[string][]Event, len(dates))
	for _, d := range dates {
		if b, ok := days[d]; ok {
			work[d] = slices.Clone(b)
		}
	}
	if err := fn(work); err != nil {
		return err
	}

	if days == nil {
		days = map[string][]Event{}
		m.buckets[owner] = days
	}
	for _, d := range dates {
		if b := work[d]; len(b) > 0 {
			days[d] = b
		} else {
			delete(days, d)
		}
	}
	return nil
}

func (m *MemoryStore) Range(ctx context.Context, owner, from, to string) (map[string][]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]Event{}
	for d, b := range m.buckets[owner] {
		if d >= from && d <= to {
			out[d] = slices.Clone(b)
		}
	}
	return out, nil
}

func (m *MemoryStore) SeriesDates(ctx context.Context, owner, seriesID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for d, b := range m.buckets[owner] {
		if _, ok := seriesIn(b)[seriesID]; ok {
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out, nil
}

package repository

import (
	"sync"
	"time"
)

// processedEventsRepository remembers which Slack event IDs have already
// entered the pipeline, so redeliveries are dropped. Entries expire after
// the retention window, which must outlast Slack's redelivery window.
type processedEventsRepository struct {
	mu        sync.Mutex
	seen      map[string]time.Time
	retention time.Duration
	now       func() time.Time
}

func NewProcessedEventsRepository(retention time.Duration) *processedEventsRepository {
	return &processedEventsRepository{
		seen:      make(map[string]time.Time),
		retention: retention,
		now:       time.Now,
	}
}

// MarkIfNew records the event ID and reports whether it was unseen.
// Expired entries are evicted opportunistically on each call.
func (r *processedEventsRepository) MarkIfNew(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, at := range r.seen {
		if now.Sub(at) > r.retention {
			delete(r.seen, id)
		}
	}

	if _, ok := r.seen[eventID]; ok {
		return false
	}
	r.seen[eventID] = now
	return true
}

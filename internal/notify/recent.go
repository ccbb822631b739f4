package notify

import (
	"sync"

	"WeatherAlertWatch/internal/domain"
)

// Recent keeps the last N dispatched outcomes.
type Recent struct {
	mu    sync.Mutex
	size  int
	items []domain.Outcome
}

// NewRecent returns a ring holding up to size outcomes.
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = 50
	}
	return &Recent{size: size}
}

// Add records an outcome, dropping the oldest when full.
func (r *Recent) Add(o domain.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, o)
	if len(r.items) > r.size {
		r.items = r.items[len(r.items)-r.size:]
	}
}

// Snapshot returns outcomes newest first.
func (r *Recent) Snapshot() []domain.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Outcome, len(r.items))
	for i, o := range r.items {
		out[len(r.items)-1-i] = o
	}
	return out
}

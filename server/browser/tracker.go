package browser

import (
	"sync"
	"time"
)

// tracker counts in-flight requests by id. A redirect reuses the request id,
// so a map keeps one entry per logical request.
type tracker struct {
	mu           sync.Mutex
	pending      map[string]struct{}
	lastActivity time.Time
}

func newTracker() *tracker {
	return &tracker{
		pending:      make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

func (t *tracker) start(id string) {
	t.mu.Lock()
	t.pending[id] = struct{}{}
	t.lastActivity = time.Now()
	t.mu.Unlock()
}

func (t *tracker) finish(id string) {
	t.mu.Lock()
	delete(t.pending, id)
	t.lastActivity = time.Now()
	t.mu.Unlock()
}

func (t *tracker) inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// idleFor reports whether no request has been pending for at least window.
func (t *tracker) idleFor(window time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending) == 0 && now.Sub(t.lastActivity) >= window
}

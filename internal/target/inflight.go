package target

import "sync"

// inflight tracks running submissions by ticket. Unlike sync.WaitGroup it may
// be waited on while new submissions are still being added, and a waiter only
// sees the submissions that were running when it asked.
type inflight struct {
	mu      sync.Mutex
	next    uint64
	pending map[uint64]chan struct{}
}

func newInflight() *inflight {
	return &inflight{pending: make(map[uint64]chan struct{})}
}

func (f *inflight) add() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.pending[id] = make(chan struct{})
	return id
}

func (f *inflight) done(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.pending[id]; ok {
		close(ch)
		delete(f.pending, id)
	}
}

// snapshot returns the completion channels of the submissions running now.
func (f *inflight) snapshot() []chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chan struct{}, 0, len(f.pending))
	for _, ch := range f.pending {
		out = append(out, ch)
	}
	return out
}

func (f *inflight) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

package binds

import (
	"sync"

	"github.com/reusee/slots/slotvm"
)

// releaseQueue defers handle releases to the session's maintenance points.
// Pushes may come from any goroutine, including cleanup callbacks.
type releaseQueue struct {
	mu      sync.Mutex
	handles []*slotvm.Handle
	closed  bool
}

func (q *releaseQueue) push(handle *slotvm.Handle) {
	if handle == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.handles = append(q.handles, handle)
}

func (q *releaseQueue) drain() []*slotvm.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	handles := q.handles
	q.handles = nil
	return handles
}

// close drains the queue and drops later pushes.
func (q *releaseQueue) close() []*slotvm.Handle {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	handles := q.handles
	q.handles = nil
	return handles
}

func (q *releaseQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}

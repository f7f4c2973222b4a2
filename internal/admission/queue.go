package admission

import (
	"context"
	"sync"
)

// waiter is one queued ticket reference.
type waiter struct {
	seq      uint64
	ticketID string
}

// productQueue is the FIFO admission queue of a single product. Sequence
// numbers are handed out under the queue mutex, so they are strictly
// increasing and enqueue order equals sequence order. The sweeper removes
// stale entries in place; the allocator pops from the head.
type productQueue struct {
	mu      sync.Mutex
	nextSeq uint64
	items   []waiter
	head    int
	live    map[uint64]bool
	ranks   fenwick

	// signal wakes the allocator after an enqueue, capacity 1 so
	// producers never block on it
	signal chan struct{}
}

func newProductQueue() *productQueue {
	return &productQueue{
		nextSeq: 1,
		live:    make(map[uint64]bool),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue appends the ticket and returns its sequence number.
func (q *productQueue) Enqueue(ticketID string) uint64 {
	q.mu.Lock()
	seq := q.nextSeq
	q.nextSeq++
	q.items = append(q.items, waiter{seq: seq, ticketID: ticketID})
	q.live[seq] = true
	q.ranks.add(int(seq), 1)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return seq
}

// ReserveSeq draws the next sequence number without queueing anything.
// Used when a ticket resolves at join time: it still gets its place in
// the arrival order even though it never waits.
func (q *productQueue) ReserveSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	seq := q.nextSeq
	q.nextSeq++
	return seq
}

// Remove drops a not-yet-popped entry, used by the expiry sweeper. The
// slot stays in items and is skipped when the head reaches it.
func (q *productQueue) Remove(seq uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.live[seq] {
		return false
	}
	delete(q.live, seq)
	q.ranks.add(int(seq), -1)
	return true
}

// Pop returns the oldest live entry, or ok=false when the queue is empty.
func (q *productQueue) Pop() (waiter, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head < len(q.items) {
		w := q.items[q.head]
		q.head++
		if !q.live[w.seq] {
			continue
		}
		delete(q.live, w.seq)
		q.ranks.add(int(w.seq), -1)
		q.compactLocked()
		return w, true
	}
	q.compactLocked()
	return waiter{}, false
}

// PopWait blocks until an entry is available or the context is done.
func (q *productQueue) PopWait(ctx context.Context) (waiter, error) {
	for {
		if w, ok := q.Pop(); ok {
			return w, nil
		}
		select {
		case <-q.signal:
		case <-ctx.Done():
			return waiter{}, ctx.Err()
		}
	}
}

// Position returns the 1-based queue position of seq, or 0 if the entry
// is no longer queued.
func (q *productQueue) Position(seq uint64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.live[seq] {
		return 0
	}
	return q.ranks.sum(int(seq))
}

// Len returns the number of live entries.
func (q *productQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.live)
}

// compactLocked reclaims the consumed prefix of items once it dominates
// the slice. Callers must hold q.mu.
func (q *productQueue) compactLocked() {
	if q.head > 1024 && q.head > len(q.items)/2 {
		q.items = append([]waiter(nil), q.items[q.head:]...)
		q.head = 0
	}
}

// Package queue implements the bounded request queue between the HTTP
// front end and the single inference worker (spec §4.7): a non-blocking,
// multi-producer/single-consumer channel that rejects new work instead of
// blocking once full.
package queue

import (
	"context"
	"sync/atomic"
	"time"
)

// Item is one detection request in flight between an HTTP handler and the
// worker.
type Item struct {
	RequestID  string
	JPEG       []byte
	Threshold  *float64
	EnqueuedAt time.Time
	Reply      *ReplySink
}

// Queue is a bounded FIFO channel of *Item with non-blocking enqueue. A
// pending count, not just channel occupancy, gates admission: an item stays
// "pending between handler and worker" (§4.7's invariant) from the moment
// it is accepted until the worker has finished replying to it, so a slot
// freed by Dequeue is not available for a new arrival while its item is
// still being processed.
type Queue struct {
	ch      chan *Item
	cap     int64
	pending atomic.Int64
}

// New creates a Queue with the given capacity (§4.7's worker_queue_size).
func New(capacity int) *Queue {
	return &Queue{ch: make(chan *Item, capacity), cap: int64(capacity)}
}

// TryEnqueue attempts to add item without blocking. It returns false if the
// queue is already holding capacity pending items — whether buffered or
// still being processed by the worker — which the caller maps to
// KindServerBusy (§7).
func (q *Queue) TryEnqueue(item *Item) bool {
	for {
		cur := q.pending.Load()
		if cur >= q.cap {
			return false
		}
		if q.pending.CompareAndSwap(cur, cur+1) {
			break
		}
	}

	select {
	case q.ch <- item:
		return true
	default:
		q.pending.Add(-1)
		return false
	}
}

// Release marks one previously enqueued item as fully handled (its reply
// has been sent), freeing its slot in the pending count. The worker calls
// this once per dequeued item after processing finishes.
func (q *Queue) Release() {
	q.pending.Add(-1)
}

// Dequeue blocks until an item is available, the queue is closed (ok=false),
// or ctx is done (ok=false).
func (q *Queue) Dequeue(ctx context.Context) (*Item, bool) {
	select {
	case item, ok := <-q.ch:
		return item, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Len reports the number of items currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap reports the queue's configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// Close signals the worker to stop accepting new items. Any item still
// buffered is drained by a final Dequeue call returning ok=true until the
// channel empties, then ok=false.
func (q *Queue) Close() {
	close(q.ch)
}

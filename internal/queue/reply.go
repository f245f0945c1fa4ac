package queue

import "sync"

// ReplySink is a single-shot handoff channel between the worker and the
// HTTP handler awaiting its result. The handler may give up first (request
// timeout) without the worker ever knowing: the channel is buffered, so a
// late Send never blocks on an abandoned receiver.
type ReplySink struct {
	ch   chan Reply
	once sync.Once
}

// Reply is the outcome the worker hands back for one Item.
type Reply struct {
	Result any
	Err    error
}

// NewReplySink creates a ready-to-use reply channel with a one-slot buffer.
func NewReplySink() *ReplySink {
	return &ReplySink{ch: make(chan Reply, 1)}
}

// Send delivers the worker's result. If the handler already abandoned the
// request (timed out), the buffered slot means Send never blocks.
func (r *ReplySink) Send(result any, err error) {
	r.once.Do(func() {
		r.ch <- Reply{Result: result, Err: err}
		close(r.ch)
	})
}

// Wait blocks until the worker sends a reply or done fires, whichever
// comes first. ok is false if done fired before any reply arrived.
func (r *ReplySink) Wait(done <-chan struct{}) (Reply, bool) {
	select {
	case reply, ok := <-r.ch:
		return reply, ok
	case <-done:
		return Reply{}, false
	}
}

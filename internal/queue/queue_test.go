package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryEnqueueRespectsCapacity(t *testing.T) {
	q := New(2)
	assert.True(t, q.TryEnqueue(&Item{RequestID: "1"}))
	assert.True(t, q.TryEnqueue(&Item{RequestID: "2"}))
	assert.False(t, q.TryEnqueue(&Item{RequestID: "3"}))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 2, q.Cap())
}

func TestDequeueFIFO(t *testing.T) {
	q := New(4)
	require.True(t, q.TryEnqueue(&Item{RequestID: "a"}))
	require.True(t, q.TryEnqueue(&Item{RequestID: "b"}))

	item, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, "a", item.RequestID)

	item, ok = q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, "b", item.RequestID)
}

func TestDequeueRespectsContextCancellation(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok := q.Dequeue(ctx)
	assert.False(t, ok)
}

func TestCloseDrainsThenSignalsDone(t *testing.T) {
	q := New(2)
	require.True(t, q.TryEnqueue(&Item{RequestID: "only"}))
	q.Close()

	item, ok := q.Dequeue(context.Background())
	require.True(t, ok)
	assert.Equal(t, "only", item.RequestID)

	_, ok = q.Dequeue(context.Background())
	assert.False(t, ok)
}

func TestReplySinkDeliversResult(t *testing.T) {
	sink := NewReplySink()
	go sink.Send("hello", nil)

	reply, ok := sink.Wait(make(chan struct{}))
	require.True(t, ok)
	assert.Equal(t, "hello", reply.Result)
	assert.NoError(t, reply.Err)
}

func TestReplySinkWaitTimesOutWithoutBlockingLateSend(t *testing.T) {
	sink := NewReplySink()
	done := make(chan struct{})
	close(done)

	_, ok := sink.Wait(done)
	assert.False(t, ok)

	// A late send after the handler gave up must not block or panic.
	sink.Send("late", nil)
}

func TestReplySinkSendOnlyOnce(t *testing.T) {
	sink := NewReplySink()
	sink.Send("first", nil)
	assert.NotPanics(t, func() { sink.Send("second", nil) })

	reply, ok := sink.Wait(make(chan struct{}))
	require.True(t, ok)
	assert.Equal(t, "first", reply.Result)
}

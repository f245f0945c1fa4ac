package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/detecterr"
	"github.com/blue-onyx-go/blueonyx/internal/detector"
	"github.com/blue-onyx-go/blueonyx/internal/postprocess"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	result detector.Result
	err    error
}

func (f *fakeDetector) Detect(_ string, _ []byte, _ *float64) (detector.Result, error) {
	return f.result, f.err
}

func TestWorkerProcessSuccessUpdatesStatsAndReplies(t *testing.T) {
	det := &fakeDetector{result: detector.Result{
		Detections:  []postprocess.Detection{{Label: "person", Confidence: 0.9, XMin: 1, YMin: 2, XMax: 3, YMax: 4}},
		InferenceMs: 5,
	}}
	q := queue.New(1)
	st := stats.New("cpu", "CPUExecutionProvider", "test-model")
	w := New(det, q, st)

	item := &queue.Item{RequestID: "r1", EnqueuedAt: time.Now(), Reply: queue.NewReplySink()}
	require.True(t, q.TryEnqueue(item))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	reply, ok := item.Reply.Wait(nil)
	require.True(t, ok)
	require.NoError(t, reply.Err)

	resp, ok := reply.Result.(Response)
	require.True(t, ok)
	require.Len(t, resp.Detections, 1)
	assert.Equal(t, "person", resp.Detections[0].Label)

	snap := st.Snapshot()
	assert.Equal(t, int64(1), snap.SuccessfulRequests)

	cancel()
	<-done
}

func TestWorkerProcessErrorRepliesWithError(t *testing.T) {
	det := &fakeDetector{err: detecterr.Wrap(detecterr.KindMalformedImage, "decode", errors.New("bad jpeg"))}
	q := queue.New(1)
	w := New(det, q, nil)

	item := &queue.Item{RequestID: "r2", EnqueuedAt: time.Now(), Reply: queue.NewReplySink()}
	require.True(t, q.TryEnqueue(item))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	reply, ok := item.Reply.Wait(nil)
	require.True(t, ok)
	assert.Error(t, reply.Err)

	cancel()
	<-done
}

func TestWorkerStopsWhenQueueClosed(t *testing.T) {
	q := queue.New(1)
	w := New(&fakeDetector{}, q, nil)

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	q.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after queue close")
	}
}

// Package worker drives the single dedicated inference goroutine that
// serializes every call into the detector (spec §4.7-§4.8). ONNX Runtime
// sessions are not safe for concurrent Run calls in this design, so exactly
// one worker goroutine owns the Detector for the life of the process.
package worker

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/blue-onyx-go/blueonyx/internal/detector"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/stats"
)

// Response is the result handed back to the HTTP handler through the
// item's ReplySink on success.
type Response struct {
	Detections         []DetectionView
	InferenceMs        float64
	ProcessMs          float64
	AnalysisRoundMs    float64
	EffectiveThreshold float64
}

// DetectionView is the wire-shaped view of one detected object (§5), kept
// separate from postprocess.Detection so the worker package, not
// postprocess, owns the response-field naming.
type DetectionView struct {
	Label      string
	Confidence float64
	XMin       float64
	YMin       float64
	XMax       float64
	YMax       float64
}

// Detector is the subset of detector.Detector the worker needs, sized so a
// fake can stand in for acceptance tests without a native ONNX library.
type Detector interface {
	Detect(requestID string, jpegBytes []byte, overrideThreshold *float64) (detector.Result, error)
}

// Worker runs the dequeue-detect-reply loop against one Detector.
type Worker struct {
	det   Detector
	q     *queue.Queue
	stats *stats.Stats
}

// New builds a Worker bound to det, q, and the shared statistics aggregator.
func New(det Detector, q *queue.Queue, st *stats.Stats) *Worker {
	return &Worker{det: det, q: q, stats: st}
}

// Run locks the calling goroutine to its OS thread (matching the teacher's
// session-affinity pattern for native-library handles) and processes items
// until ctx is canceled or the queue is closed and drained. A closed
// channel keeps yielding its buffered items with ok=true before Dequeue
// finally returns ok=false, so every item enqueued before shutdown is still
// answered (§4.8) without any separate drain step.
func (w *Worker) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			return
		}
		w.process(item)
	}
}

func (w *Worker) process(item *queue.Item) {
	defer w.q.Release()

	start := time.Now()
	result, err := w.det.Detect(item.RequestID, item.JPEG, item.Threshold)
	processMs := msSince(start)

	if err != nil {
		slog.Warn("detection failed", "request_id", item.RequestID, "error", err)
		item.Reply.Send(nil, err)
		return
	}

	roundTripMs := float64(time.Since(item.EnqueuedAt).Microseconds()) / 1000.0

	views := make([]DetectionView, len(result.Detections))
	for i, d := range result.Detections {
		views[i] = DetectionView{
			Label:      d.Label,
			Confidence: d.Confidence,
			XMin:       d.XMin,
			YMin:       d.YMin,
			XMax:       d.XMax,
			YMax:       d.YMax,
		}
	}

	resp := Response{
		Detections:         views,
		InferenceMs:        result.InferenceMs,
		ProcessMs:          processMs,
		AnalysisRoundMs:    roundTripMs,
		EffectiveThreshold: result.EffectiveThreshold,
	}

	if w.stats != nil {
		w.stats.RecordSuccess(result.DecodeMs, result.PreprocessMs, result.InferenceMs, processMs, roundTripMs)
	}
	slog.Debug("detection timings", "request_id", item.RequestID,
		"decode_ms", result.DecodeMs, "resize_ms", result.PreprocessMs,
		"inference_ms", result.InferenceMs, "process_ms", processMs)

	item.Reply.Send(resp, nil)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

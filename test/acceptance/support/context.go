package support

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/blue-onyx-go/blueonyx/internal/config"
	"github.com/blue-onyx-go/blueonyx/internal/queue"
	"github.com/blue-onyx-go/blueonyx/internal/server"
	"github.com/blue-onyx-go/blueonyx/internal/stats"
	"github.com/blue-onyx-go/blueonyx/internal/worker"
)

// TestContext holds one scenario's server, its fake detector, and the
// outcome of the last HTTP request — the blue-onyx analogue of the
// teacher's support.TestContext, narrowed to the single detection
// endpoint's surface.
type TestContext struct {
	HTTPServer *httptest.Server
	Queue      *queue.Queue
	Stats      *stats.Stats
	Detector   *FakeDetector

	workerStopOnce sync.Once
	workerDone     chan struct{}

	LastStatusCode int
	LastBody       []byte
	LastJSON       map[string]any

	DroppedBefore    int64
	ConcurrentErrors []error
}

// NewTestContext returns a TestContext holding a fresh fake detector. No
// server runs until StartServer builds the in-process stack (one worker,
// no subprocess, no real model file), analogous to startServer in the
// teacher's Gherkin suite.
func NewTestContext() *TestContext {
	return &TestContext{Detector: NewFakeDetector()}
}

// StartServer builds the queue/stats/worker/server stack with the given
// queue depth and request timeout, then serves over an httptest.Server.
func (tc *TestContext) StartServer(queueSize int, requestTimeoutSec float64) {
	tc.Queue = queue.New(queueSize)
	tc.Stats = stats.New("acceptance-host", "cpu", "fake-model")

	w := worker.New(tc.Detector, tc.Queue, tc.Stats)
	tc.workerDone = make(chan struct{})
	go func() {
		defer close(tc.workerDone)
		w.Run(context.Background())
	}()

	cfg := config.DefaultConfig()
	cfg.RequestTimeoutSec = requestTimeoutSec
	cfg.Server.MaxUploadMB = 20

	srv := server.New(cfg, tc.Queue, tc.Stats, tc.Detector, "")
	tc.HTTPServer = httptest.NewServer(srv.Handler())
}

// Close releases the httptest server and drains the worker via queue close.
func (tc *TestContext) Close() {
	if tc.HTTPServer != nil {
		tc.HTTPServer.Close()
	}
	if tc.Queue != nil {
		tc.workerStopOnce.Do(tc.Queue.Close)
	}
	if tc.workerDone != nil {
		<-tc.workerDone
	}
}

// PostJPEG posts body as the "image" multipart field, optionally with a
// min_confidence override, and records the outcome.
func (tc *TestContext) PostJPEG(body []byte, minConfidence *float64) error {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("image", "frame.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(body); err != nil {
		return err
	}
	if minConfidence != nil {
		if err := mw.WriteField("min_confidence", fmt.Sprintf("%.4f", *minConfidence)); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := http.Post(tc.HTTPServer.URL+"/v1/vision/detection", mw.FormDataContentType(), buf)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	return tc.recordResponse(resp)
}

// GetStats fetches GET /stats and records the JSON body.
func (tc *TestContext) GetStats() error {
	resp, err := http.Get(tc.HTTPServer.URL + "/stats")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return tc.recordResponse(resp)
}

func (tc *TestContext) recordResponse(resp *http.Response) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.LastStatusCode = resp.StatusCode
	tc.LastBody = data
	tc.LastJSON = nil
	var parsed map[string]any
	if json.Unmarshal(data, &parsed) == nil {
		tc.LastJSON = parsed
	}
	return nil
}

// fireConcurrent posts n copies of body concurrently and returns once all
// have completed. It returns every response by request index (nil where
// the request failed) and leaves the last-response fields untouched.
func (tc *TestContext) fireConcurrent(n int, body []byte) []*http.Response {
	var wg sync.WaitGroup
	responses := make([]*http.Response, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			buf := &bytes.Buffer{}
			mw := multipart.NewWriter(buf)
			part, _ := mw.CreateFormFile("image", "frame.jpg")
			_, _ = part.Write(body)
			_ = mw.Close()

			resp, err := http.Post(tc.HTTPServer.URL+"/v1/vision/detection", mw.FormDataContentType(), buf)
			if err != nil {
				return
			}
			responses[idx] = resp
		}(i)
	}
	wg.Wait()
	return responses
}
